package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rs/xid"

	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/pkg/events"
)

const (
	defaultChunkSize = 4096
	defaultMimeType  = "audio/webm"
	defaultFilename  = "audio.webm"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	MimeType  string
	Filename  string
	ChunkSize int
	Playback  Playback
	Emitter   Emitter
}

// Recorder is the fallback capture mode: Idle → Recording → Idle, with the
// duration controlled by the caller. Audio is buffered in memory and
// submitted as one payload after the input source is released.
type Recorder struct {
	source    AudioSource
	submitter Submitter
	sink      Sink
	opts      RecorderOptions

	mu        sync.Mutex
	state     State
	session   AudioSession
	chunks    [][]byte
	pumpDone  chan struct{}
	pumpErr   error
	sessionID string
}

func NewRecorder(source AudioSource, submitter Submitter, sink Sink, opts RecorderOptions) *Recorder {
	if opts.MimeType == "" {
		opts.MimeType = defaultMimeType
	}
	if opts.Filename == "" {
		opts.Filename = defaultFilename
	}
	if opts.ChunkSize < 256 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Playback == nil {
		opts.Playback = noPlayback{}
	}
	return &Recorder{source: source, submitter: submitter, sink: sink, opts: opts}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the audio source and begins buffering.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return ErrBusy
	}
	r.mu.Unlock()

	r.sink.Reset()
	r.opts.Playback.StopSpeaking()

	session, err := r.source.Start(ctx)
	if err != nil {
		slog.WarnContext(ctx, "capture: audio source unavailable", slog.String("error", err.Error()))
		r.sink.Error(ErrNotAllowed, "Microphone access denied. Check settings.")
		return fmt.Errorf("start audio source: %w", err)
	}

	r.mu.Lock()
	r.state = Recording
	r.session = session
	r.chunks = nil
	r.pumpErr = nil
	r.pumpDone = make(chan struct{})
	r.sessionID = xid.New().String()
	done, sessionID := r.pumpDone, r.sessionID
	r.mu.Unlock()

	go r.pump(session, done)
	// Superseding waits for acquisition so a denied microphone leaves the
	// previous translation running.
	r.submitter.Cancel()

	slog.InfoContext(ctx, "capture: recording", slog.String("session_id", sessionID))
	r.sink.StateChanged(Recording)
	return nil
}

func (r *Recorder) pump(session AudioSession, done chan struct{}) {
	defer close(done)
	buf := make([]byte, r.opts.ChunkSize)
	for {
		n, err := session.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.pumpErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Stop releases the audio source, concatenates the buffered chunks and
// submits them. Calling Stop when not recording does nothing.
func (r *Recorder) Stop(ctx context.Context) error {
	session, done, ok := r.detach()
	if !ok {
		return nil
	}

	stopErr := session.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		_ = session.Close()
		<-done
	}

	r.mu.Lock()
	var payload bytes.Buffer
	for _, c := range r.chunks {
		payload.Write(c)
	}
	r.chunks = nil
	pumpErr := r.pumpErr
	sessionID := r.sessionID
	r.state = Idle
	r.mu.Unlock()

	r.sink.StateChanged(Idle)
	if stopErr != nil {
		slog.Warn("capture: audio source stop", slog.String("error", stopErr.Error()))
	}
	if pumpErr != nil {
		slog.Warn("capture: audio read", slog.String("error", pumpErr.Error()))
	}
	if payload.Len() == 0 {
		r.sink.Error(ErrAudioCapture, "No audio was recorded.")
		return nil
	}

	if r.opts.Emitter != nil {
		err := r.opts.Emitter.Emit(context.WithoutCancel(ctx), events.CaptureFinalized, sessionID, events.CaptureFinalizedData{
			Mode:       "recording",
			Trigger:    "stop",
			AudioBytes: payload.Len(),
		})
		if err != nil {
			slog.Warn("capture: emit event", slog.String("error", err.Error()))
		}
	}
	slog.Info("capture: submitting audio", slog.String("session_id", sessionID), slog.Int("bytes", payload.Len()))
	r.submitter.SubmitAudio(engine.Audio{
		Data:     payload.Bytes(),
		Filename: r.opts.Filename,
		MimeType: r.opts.MimeType,
	})
	return nil
}

// Abort releases the audio source and discards the buffer.
func (r *Recorder) Abort() {
	session, done, ok := r.detach()
	if !ok {
		return
	}
	_ = session.Stop()
	<-done

	r.mu.Lock()
	r.chunks = nil
	r.state = Idle
	r.mu.Unlock()
	r.sink.StateChanged(Idle)
}

// detach claims the active session so only one of Stop/Abort proceeds.
func (r *Recorder) detach() (AudioSession, chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording || r.session == nil {
		return nil, nil, false
	}
	session, done := r.session, r.pumpDone
	r.session = nil
	return session, done, true
}
