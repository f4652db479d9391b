package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	TranslationCompleted EventType = "translation.completed"
	TranslationDegraded  EventType = "translation.degraded"
	TranslationFailed    EventType = "translation.failed"
	CaptureFinalized     EventType = "capture.finalized"
	CaptureError         EventType = "capture.error"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TranslationData is the payload for translation.completed and
// translation.degraded events. Patient text is never included.
type TranslationData struct {
	InputLanguage  string  `json:"input_language"`
	TargetLanguage string  `json:"target_language"`
	Route          string  `json:"route"`
	Corrected      bool    `json:"medical_correction"`
	Confidence     float64 `json:"confidence"`
	InputChars     int     `json:"input_chars"`
	DurationMs     int64   `json:"duration_ms"`
}

// TranslationFailedData is the payload for translation.failed events.
type TranslationFailedData struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Offline    bool   `json:"offline"`
	DurationMs int64  `json:"duration_ms"`
}

// CaptureFinalizedData is the payload for capture.finalized events.
type CaptureFinalizedData struct {
	Mode       string `json:"mode"` // "speech" or "recording"
	Locale     string `json:"locale"`
	Trigger    string `json:"trigger"` // "silence", "stop"
	Chars      int    `json:"chars,omitempty"`
	AudioBytes int    `json:"audio_bytes,omitempty"`
}

// CaptureErrorData is the payload for capture.error events.
type CaptureErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
