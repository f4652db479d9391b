package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/carelingo/carelingo/internal/capture"
)

// terminal renders capture output as plain lines.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

var _ capture.Sink = (*terminal)(nil)

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) StateChanged(s capture.State) {
	t.printf("[%s]\n", s)
}

func (t *terminal) Transcript(text string) {
	t.printf("  … %s\n", text)
}

func (t *terminal) Result(r capture.Result) {
	if r.Corrected != "" && r.Corrected != r.Original {
		t.printf("  corrected: %s\n", r.Corrected)
	}
	t.printf("→ %s  (%.0f%%)\n", r.Translated, r.Confidence*100)
}

func (t *terminal) Error(code capture.ErrorCode, message string) {
	t.printf("! %s (%s)\n", message, code)
}

func (t *terminal) Reset() {}
