package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carelingo/carelingo/internal/capture"
)

const (
	startupGrace = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// FFmpegConfig describes how the microphone is captured.
type FFmpegConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// FFmpegSource records the microphone as Opus in a WebM container on
// ffmpeg's stdout.
type FFmpegSource struct {
	cfg FFmpegConfig
}

var _ capture.AudioSource = (*FFmpegSource)(nil)

func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &FFmpegSource{cfg: cfg}
}

func (s *FFmpegSource) args() []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.InputDevice,
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-c:a", "libopus",
		"-f", "webm",
		"-",
	}
}

// Start launches ffmpeg. A missing device or denied permission makes ffmpeg
// exit almost at once, so Start waits briefly and reports that as an error.
func (s *FFmpegSource) Start(ctx context.Context) (capture.AudioSession, error) {
	pr, pw := io.Pipe()
	stderr := &tailBuffer{max: 2048}

	cmd := exec.CommandContext(ctx, s.cfg.Command, s.args()...)
	cmd.Stdout = pw
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	sess := &ffmpegSession{out: pr, stderr: stderr, proc: cmd.Process, exited: make(chan struct{})}
	go func() {
		// Wait returns only after stdout has been fully copied into the pipe.
		sess.exitErr = cmd.Wait()
		_ = pw.Close()
		close(sess.exited)
	}()

	select {
	case <-sess.exited:
		_ = pr.Close()
		return nil, fmt.Errorf("ffmpeg exited during startup: %s", sess.describe(sess.exitErr))
	case <-time.After(startupGrace):
		return sess, nil
	}
}

type ffmpegSession struct {
	out    *io.PipeReader
	stderr *tailBuffer
	proc   *os.Process

	exited  chan struct{}
	exitErr error

	once    sync.Once
	stopErr error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.out.Read(p)
}

// Close stops capture and discards unread output.
func (s *ffmpegSession) Close() error {
	err := s.Stop()
	_ = s.out.Close()
	return err
}

// Stop asks ffmpeg to finish the container with SIGINT and kills it after
// stopGrace. Output written before exit remains readable until EOF.
func (s *ffmpegSession) Stop() error {
	s.once.Do(func() {
		_ = s.proc.Signal(os.Interrupt)
		select {
		case <-s.exited:
		case <-time.After(stopGrace):
			_ = s.proc.Kill()
			<-s.exited
		}

		var exitErr *exec.ExitError
		if s.exitErr != nil && !errors.As(s.exitErr, &exitErr) {
			s.stopErr = fmt.Errorf("ffmpeg: %s", s.describe(s.exitErr))
		}
	})
	return s.stopErr
}

func (s *ffmpegSession) describe(err error) string {
	msg := "exit status 0"
	if err != nil {
		msg = err.Error()
	}
	if tail := s.stderr.String(); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
