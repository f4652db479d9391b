// Package capture decides when a spoken utterance is complete and hands it
// to translation. Machine drives a continuous recognizer with silence-based
// auto-commit; Recorder is the manual start/stop fallback that buffers raw
// audio.
package capture

import (
	"context"
	"errors"
	"io"

	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/pkg/events"
)

// ErrBusy is returned when an operation needs an idle session.
var ErrBusy = errors.New("capture session in progress")

// ErrStartInterrupted is returned by Machine.Start when the recognizer
// reported an error or ended before Start returned.
var ErrStartInterrupted = errors.New("capture session closed while starting")

// State is the capture lifecycle state.
type State int

const (
	Idle State = iota
	Listening
	Finalizing
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Finalizing:
		return "finalizing"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// EventKind is the type of a recognizer event.
type EventKind int

const (
	EventStart EventKind = iota
	EventResult
	EventError
	EventEnd
)

// ErrorCode identifies recognizer and pipeline errors.
type ErrorCode string

const (
	ErrNoSpeech             ErrorCode = "no-speech"
	ErrNotAllowed           ErrorCode = "not-allowed"
	ErrAudioCapture         ErrorCode = "audio-capture"
	ErrLanguageNotSupported ErrorCode = "language-not-supported"
	ErrTranslation          ErrorCode = "translation"
)

// Segment is one recognition hypothesis.
type Segment struct {
	Text  string
	Final bool
}

// Event is a single item of the recognizer's ordered event stream.
type Event struct {
	Kind     EventKind
	Segments []Segment // EventResult
	Code     ErrorCode // EventError
}

// Recognizer is a continuous speech recognizer bound to one locale. Stop
// asks it to flush final results and then emit EventEnd. Abort discards the
// session without emitting anything.
type Recognizer interface {
	Start() error
	Stop() error
	Abort()
}

// RecognizerFactory builds a recognizer for a speech locale such as "es-ES".
type RecognizerFactory func(locale string) (Recognizer, error)

// AudioSession is a live microphone capture.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioSource opens microphone capture sessions.
type AudioSource interface {
	Start(ctx context.Context) (AudioSession, error)
}

// Result is a translation delivered back to the presentation layer.
type Result struct {
	Original   string
	Corrected  string
	Translated string
	Confidence float64
}

// Translator submits finalized utterances for translation.
type Translator interface {
	TranslateText(ctx context.Context, text string) (Result, error)
	TranslateAudio(ctx context.Context, audio engine.Audio) (Result, error)
}

// ResultSink receives translation outcomes.
type ResultSink interface {
	Result(Result)
	Error(code ErrorCode, message string)
}

// Sink is the presentation layer port.
type Sink interface {
	ResultSink
	StateChanged(State)
	Transcript(text string)
	// Reset clears any displayed transcript and result.
	Reset()
}

// Playback controls speech synthesis output.
type Playback interface {
	StopSpeaking()
}

// Submitter accepts finalized utterances. *Dispatcher implements it.
type Submitter interface {
	SubmitText(text string)
	SubmitAudio(audio engine.Audio)
	Cancel()
}

// Emitter receives capture events. *events.Publisher satisfies it.
type Emitter interface {
	Emit(ctx context.Context, eventType events.EventType, sessionID string, data any) error
}

type noPlayback struct{}

func (noPlayback) StopSpeaking() {}
