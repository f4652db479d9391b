package adapters

import (
	"context"
	"slices"
	"testing"
)

func TestFFmpegDefaultsAndArgs(t *testing.T) {
	src := NewFFmpegSource(FFmpegConfig{})
	args := src.args()

	for _, pair := range [][2]string{
		{"-f", "pulse"},
		{"-i", "default"},
		{"-ac", "1"},
		{"-ar", "16000"},
		{"-c:a", "libopus"},
	} {
		i := slices.Index(args, pair[0])
		if i < 0 || i+1 >= len(args) || args[i+1] != pair[1] {
			t.Errorf("expected %s %s in %v", pair[0], pair[1], args)
		}
	}
	if args[len(args)-1] != "-" || args[len(args)-2] != "webm" {
		t.Errorf("expected webm on stdout, got %v", args[len(args)-3:])
	}
}

func TestFFmpegCustomDevice(t *testing.T) {
	src := NewFFmpegSource(FFmpegConfig{InputFormat: "alsa", InputDevice: "hw:1", SampleRate: 48000, Channels: 2})
	args := src.args()
	if !slices.Contains(args, "alsa") || !slices.Contains(args, "hw:1") || !slices.Contains(args, "48000") || !slices.Contains(args, "2") {
		t.Errorf("args = %v", args)
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	src := NewFFmpegSource(FFmpegConfig{Command: "carelingo-no-such-ffmpeg"})
	if _, err := src.Start(context.Background()); err == nil {
		t.Fatal("expected start error for missing binary")
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	tb := &tailBuffer{max: 8}
	_, _ = tb.Write([]byte("device "))
	_, _ = tb.Write([]byte("not found\n"))
	if got := tb.String(); got != "t found" {
		t.Errorf("tail = %q", got)
	}
}
