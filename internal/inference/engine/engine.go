package engine

import (
	"context"
)

// Message roles understood by every chat backend.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest is a single system+user exchange.
type ChatRequest struct {
	System string
	User   string
	// Structured asks the backend to constrain output to one JSON object.
	// Backends that cannot honour it ignore the hint.
	Structured bool
}

// ChatBackend sends chat-completion style requests and returns the model's
// free text.
type ChatBackend interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Name() string
}

// Audio is a complete recorded utterance.
type Audio struct {
	Data     []byte
	Filename string
	MimeType string
}

// Transcriber converts a recorded utterance to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
