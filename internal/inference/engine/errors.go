package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrLocalUnavailable is returned when no local address answered.
	ErrLocalUnavailable = errors.New("local backend unavailable")
	// ErrNoTranscriber is returned for audio requests when no backend can
	// transcribe.
	ErrNoTranscriber = errors.New("no speech-to-text backend configured")
	// ErrTimeout marks a call aborted by its deadline.
	ErrTimeout = errors.New("inference deadline exceeded")
)

// StatusError is a non-2xx answer from a backend.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Backend, e.StatusCode, e.Body)
}

// IsCancellation reports whether err came from a cancelled or expired
// context. Such errors must never be retried against another address.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout)
}

// IsConnectivity reports whether err means the backend could not be reached
// at all, as opposed to answering with an error.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLocalUnavailable) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
