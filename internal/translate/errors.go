package translate

import (
	"context"
	"errors"

	"github.com/carelingo/carelingo/internal/inference/engine"
)

// User-facing messages.
const (
	MsgEmptyText    = "Input text is empty."
	MsgNoAudio      = "No audio file uploaded"
	MsgOffline      = "Could not connect to AI Service. Check your internet."
	MsgGeneric      = "Translation processing failed"
	MsgCanceled     = "Translation was cancelled"
	MsgNoTranscribe = "Speech-to-text is not configured"
)

// Kind classifies a failed translation.
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindTransport
	KindTimeout
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Error is the single failure surfaced to callers. Message is safe to show
// to a user; Err keeps the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Offline reports a connectivity failure as opposed to a generic one.
// Timeouts count as connectivity for messaging.
func (e *Error) Offline() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindTransport:
		return engine.IsConnectivity(e.Err)
	}
	return false
}

// classify maps pipeline failures onto the error taxonomy.
func classify(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(err, engine.ErrTimeout):
		return &Error{Kind: KindTimeout, Message: MsgOffline, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Message: MsgCanceled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: MsgOffline, Err: err}
	case errors.Is(err, engine.ErrNoTranscriber):
		return &Error{Kind: KindInternal, Message: MsgNoTranscribe, Err: err}
	case engine.IsConnectivity(err):
		return &Error{Kind: KindTransport, Message: MsgOffline, Err: err}
	}

	var statusErr *engine.StatusError
	if errors.As(err, &statusErr) {
		return &Error{Kind: KindTransport, Message: MsgGeneric, Err: err}
	}
	return &Error{Kind: KindInternal, Message: MsgGeneric, Err: err}
}

// IsInput reports whether err is a caller mistake rather than a backend
// failure.
func IsInput(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindInput
}
