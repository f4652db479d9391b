package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/carelingo/carelingo/internal/inference/engine"
)

// callLog records cross-fake call ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due callbacks on the caller's
// goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fakeRecognizer struct {
	locale   string
	startErr error
	starts   int
	stops    int
	aborts   int
	onStart  func()
	onStop   func()
}

func (r *fakeRecognizer) Start() error {
	r.starts++
	if r.onStart != nil {
		r.onStart()
	}
	return r.startErr
}

func (r *fakeRecognizer) Stop() error {
	r.stops++
	if r.onStop != nil {
		r.onStop()
	}
	return nil
}

func (r *fakeRecognizer) Abort() { r.aborts++ }

type recognizerSet struct {
	built []*fakeRecognizer
	err   error
}

func (s *recognizerSet) factory(locale string) (Recognizer, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := &fakeRecognizer{locale: locale}
	s.built = append(s.built, r)
	return r, nil
}

func (s *recognizerSet) last() *fakeRecognizer {
	return s.built[len(s.built)-1]
}

type fakeSink struct {
	mu          sync.Mutex
	states      []State
	transcripts []string
	results     []Result
	errors      []ErrorCode
	resets      int
}

func (s *fakeSink) StateChanged(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *fakeSink) Transcript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, text)
}

func (s *fakeSink) Result(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *fakeSink) Error(code ErrorCode, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, code)
}

func (s *fakeSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeSink) count(st State) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.states {
		if x == st {
			n++
		}
	}
	return n
}

type fakeSubmitter struct {
	log     *callLog
	mu      sync.Mutex
	texts   []string
	audios  []engine.Audio
	cancels int
}

func (s *fakeSubmitter) SubmitText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.log.add("submit")
}

func (s *fakeSubmitter) SubmitAudio(a engine.Audio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audios = append(s.audios, a)
	s.log.add("submit")
}

func (s *fakeSubmitter) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

type fakePlayback struct{ stops int }

func (p *fakePlayback) StopSpeaking() { p.stops++ }

// pipeSession is an AudioSession fed by the test through w.
type pipeSession struct {
	r     *io.PipeReader
	w     *io.PipeWriter
	log   *callLog
	stops int
}

func newPipeSession(log *callLog) *pipeSession {
	r, w := io.Pipe()
	return &pipeSession{r: r, w: w, log: log}
}

func (s *pipeSession) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *pipeSession) Close() error               { return s.r.Close() }

func (s *pipeSession) Stop() error {
	s.stops++
	s.log.add("release")
	return s.w.Close()
}

type fakeSource struct {
	session *pipeSession
	err     error
}

func (f *fakeSource) Start(context.Context) (AudioSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

var errDenied = errors.New("permission denied")
