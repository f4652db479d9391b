package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/carelingo/carelingo/pkg/events"
)

// DefaultSilenceTimeout commits an utterance after this long without a
// recognition update.
const DefaultSilenceTimeout = 4 * time.Second

// MachineOptions configures a Machine.
type MachineOptions struct {
	Locale         string
	SilenceTimeout time.Duration
	Clock          Clock
	Playback       Playback
	Emitter        Emitter
}

// Machine is the continuous-recognition capture state machine:
// Idle → Listening → Idle on user stop, Idle → Listening → Finalizing → Idle
// when silence commits the utterance. The silence timer and the recognizer
// event stream may race; every transition re-checks state under the lock so
// each utterance is submitted at most once.
type Machine struct {
	factory   RecognizerFactory
	submitter Submitter
	sink      Sink
	playback  Playback
	emitter   Emitter
	clock     Clock
	silence   time.Duration

	mu         sync.Mutex
	state      State
	locale     string
	recognizer Recognizer
	text       transcript
	timer      Timer
	timerGen   uint64
	sessionGen uint64
	sessionID  string
}

// NewMachine builds a machine and its first recognizer.
func NewMachine(factory RecognizerFactory, submitter Submitter, sink Sink, opts MachineOptions) (*Machine, error) {
	m := &Machine{
		factory:   factory,
		submitter: submitter,
		sink:      sink,
		playback:  opts.Playback,
		emitter:   opts.Emitter,
		clock:     opts.Clock,
		silence:   opts.SilenceTimeout,
		locale:    opts.Locale,
	}
	if m.playback == nil {
		m.playback = noPlayback{}
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.silence <= 0 {
		m.silence = DefaultSilenceTimeout
	}
	if m.locale == "" {
		m.locale = "en-US"
	}

	rec, err := factory(m.locale)
	if err != nil {
		return nil, fmt.Errorf("create recognizer for %s: %w", m.locale, err)
	}
	m.recognizer = rec
	return m, nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Locale returns the locale the recognizer is bound to.
func (m *Machine) Locale() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locale
}

// Start enters Listening. It clears the previous transcript and result and
// stops speech playback. The in-flight translation is cancelled only once the
// recognizer is running, so a failed start leaves it alone. If an error or
// end event closes the session while the recognizer is starting, Start
// returns ErrStartInterrupted and the machine stays where that event left it.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return ErrBusy
	}
	m.text.reset()
	m.stopTimerLocked()
	m.state = Listening
	m.sessionGen++
	gen := m.sessionGen
	m.sessionID = xid.New().String()
	sessionID, locale := m.sessionID, m.locale
	rec := m.recognizer
	m.mu.Unlock()

	m.sink.Reset()
	m.playback.StopSpeaking()
	m.sink.StateChanged(Listening)

	rec.Abort()
	startErr := rec.Start()

	m.mu.Lock()
	current := m.sessionGen == gen && m.state == Listening
	if startErr != nil && current {
		m.state = Idle
		m.text.reset()
		m.stopTimerLocked()
	}
	m.mu.Unlock()

	if startErr != nil {
		slog.Warn("capture: recognizer start failed", slog.String("locale", locale), slog.String("error", startErr.Error()))
		if current {
			m.sink.Error(ErrAudioCapture, "Could not start the microphone.")
			m.sink.StateChanged(Idle)
		}
		return fmt.Errorf("start recognizer: %w", startErr)
	}
	if !current {
		rec.Abort()
		slog.Info("capture: session closed while starting", slog.String("session_id", sessionID))
		return ErrStartInterrupted
	}

	m.submitter.Cancel()
	slog.Info("capture: listening", slog.String("session_id", sessionID), slog.String("locale", locale))
	return nil
}

// Stop is the explicit user stop. It returns to Idle at once and submits the
// accumulated text, if any. Calling it when not listening does nothing.
func (m *Machine) Stop() error {
	m.mu.Lock()
	if m.state != Listening && m.state != Finalizing {
		m.mu.Unlock()
		return nil
	}
	text, sessionID := m.finishLocked()
	rec := m.recognizer
	m.mu.Unlock()

	m.sink.StateChanged(Idle)
	if err := rec.Stop(); err != nil {
		slog.Warn("capture: recognizer stop failed", slog.String("error", err.Error()))
	}
	m.submit(text, sessionID, "stop")
	return nil
}

// Handle applies one recognizer event.
func (m *Machine) Handle(ev Event) {
	switch ev.Kind {
	case EventStart:
		slog.Debug("capture: recognizer started")
	case EventResult:
		m.handleResult(ev.Segments)
	case EventError:
		m.handleError(ev.Code)
	case EventEnd:
		m.handleEnd()
	}
}

// Consume feeds events to Handle until ctx is done or events is closed.
func (m *Machine) Consume(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.Handle(ev)
		}
	}
}

// SetLocale tears down the recognizer and builds one for locale. It is only
// allowed while Idle.
func (m *Machine) SetLocale(locale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return ErrBusy
	}
	if locale == "" {
		return errors.New("empty locale")
	}
	rec, err := m.factory(locale)
	if err != nil {
		return fmt.Errorf("create recognizer for %s: %w", locale, err)
	}
	m.recognizer.Abort()
	m.recognizer = rec
	m.locale = locale
	return nil
}

func (m *Machine) handleResult(segments []Segment) {
	m.mu.Lock()
	switch m.state {
	case Listening:
	case Finalizing:
		// Late finals flushed by Stop; no timer while finalizing.
		m.text.add(segments)
		m.mu.Unlock()
		return
	default:
		m.mu.Unlock()
		return
	}
	m.text.add(segments)
	current := m.text.current()

	m.stopTimerLocked()
	m.timerGen++
	gen := m.timerGen
	m.timer = m.clock.AfterFunc(m.silence, func() { m.onSilence(gen) })
	m.mu.Unlock()

	m.sink.Transcript(current)
}

func (m *Machine) onSilence(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen || m.state != Listening || m.text.final() == "" {
		m.mu.Unlock()
		return
	}
	m.state = Finalizing
	m.timer = nil
	rec := m.recognizer
	sessionID := m.sessionID
	m.mu.Unlock()

	slog.Info("capture: silence detected, finalizing",
		slog.String("session_id", sessionID),
		slog.Duration("after", m.silence),
	)
	m.sink.StateChanged(Finalizing)
	if err := rec.Stop(); err != nil {
		slog.Warn("capture: recognizer stop failed", slog.String("error", err.Error()))
		m.handleEnd()
	}
}

func (m *Machine) handleError(code ErrorCode) {
	switch code {
	case ErrNoSpeech:
		return
	case ErrLanguageNotSupported:
		slog.Warn("capture: locale not fully supported", slog.String("locale", m.Locale()))
		return
	case ErrNotAllowed, ErrAudioCapture:
	default:
		slog.Warn("capture: recognizer error", slog.String("code", string(code)))
		return
	}

	m.mu.Lock()
	wasActive := m.state != Idle
	m.state = Idle
	m.text.reset()
	m.stopTimerLocked()
	rec := m.recognizer
	sessionID := m.sessionID
	m.mu.Unlock()

	rec.Abort()
	msg := "Microphone permission denied."
	if code == ErrAudioCapture {
		msg = "Microphone unavailable."
	}
	slog.Warn("capture: microphone error", slog.String("session_id", sessionID), slog.String("code", string(code)))
	m.sink.Error(code, msg)
	if wasActive {
		m.sink.StateChanged(Idle)
	}
	m.emit(events.CaptureError, sessionID, events.CaptureErrorData{Code: string(code), Message: msg})
}

func (m *Machine) handleEnd() {
	m.mu.Lock()
	if m.state != Listening && m.state != Finalizing {
		m.mu.Unlock()
		return
	}
	trigger := "end"
	if m.state == Finalizing {
		trigger = "silence"
	}
	text, sessionID := m.finishLocked()
	m.mu.Unlock()

	m.sink.StateChanged(Idle)
	m.submit(text, sessionID, trigger)
}

// finishLocked moves to Idle and hands back the text to submit.
func (m *Machine) finishLocked() (string, string) {
	text := m.text.final()
	m.text.reset()
	m.stopTimerLocked()
	m.state = Idle
	return text, m.sessionID
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

func (m *Machine) submit(text, sessionID, trigger string) {
	if text == "" {
		return
	}
	slog.Info("capture: submitting transcript",
		slog.String("session_id", sessionID),
		slog.String("trigger", trigger),
		slog.Int("chars", len([]rune(text))),
	)
	m.emit(events.CaptureFinalized, sessionID, events.CaptureFinalizedData{
		Mode:    "speech",
		Locale:  m.Locale(),
		Trigger: trigger,
		Chars:   len([]rune(text)),
	})
	m.submitter.SubmitText(text)
}

func (m *Machine) emit(eventType events.EventType, sessionID string, data any) {
	if m.emitter == nil {
		return
	}
	if err := m.emitter.Emit(context.Background(), eventType, sessionID, data); err != nil {
		slog.Warn("capture: emit event", slog.String("error", err.Error()))
	}
}
