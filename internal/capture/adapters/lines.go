// Package adapters connects the capture state machine to concrete inputs:
// typed lines standing in for a speech recognizer, ffmpeg microphone
// capture, and the translation service client.
package adapters

import (
	"errors"
	"strings"
	"sync"

	"github.com/carelingo/carelingo/internal/capture"
)

// LineInput turns typed lines into recognizer events. Every recognizer it
// builds shares one ordered event stream; only the newest one accepts
// lines.
type LineInput struct {
	events chan capture.Event

	mu      sync.Mutex
	current *LineRecognizer
}

func NewLineInput(buffer int) *LineInput {
	if buffer <= 0 {
		buffer = 64
	}
	return &LineInput{events: make(chan capture.Event, buffer)}
}

// Events is the stream to pass to capture.Machine.Consume.
func (in *LineInput) Events() <-chan capture.Event {
	return in.events
}

// Factory is a capture.RecognizerFactory.
func (in *LineInput) Factory(locale string) (capture.Recognizer, error) {
	rec := &LineRecognizer{locale: locale, events: in.events}
	in.mu.Lock()
	in.current = rec
	in.mu.Unlock()
	return rec, nil
}

// Feed delivers a line as a final recognition result. It reports false when
// no recognizer is running.
func (in *LineInput) Feed(line string) bool {
	in.mu.Lock()
	rec := in.current
	in.mu.Unlock()
	if rec == nil {
		return false
	}
	return rec.feed(line)
}

// LineRecognizer is a capture.Recognizer fed by LineInput.
type LineRecognizer struct {
	locale string
	events chan<- capture.Event

	mu      sync.Mutex
	running bool
}

func (r *LineRecognizer) Locale() string { return r.locale }

func (r *LineRecognizer) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("recognizer already started")
	}
	r.running = true
	r.mu.Unlock()
	r.events <- capture.Event{Kind: capture.EventStart}
	return nil
}

func (r *LineRecognizer) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()
	r.events <- capture.Event{Kind: capture.EventEnd}
	return nil
}

func (r *LineRecognizer) Abort() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *LineRecognizer) feed(line string) bool {
	text := strings.TrimSpace(line)
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running || text == "" {
		return false
	}
	r.events <- capture.Event{Kind: capture.EventResult, Segments: []capture.Segment{{Text: text, Final: true}}}
	return true
}
