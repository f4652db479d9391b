package capture

import (
	"context"
	"errors"
	"testing"
)

func TestRecorderBuffersAndSubmitsAfterRelease(t *testing.T) {
	log := &callLog{}
	session := newPipeSession(log)
	sink := &fakeSink{}
	sub := &fakeSubmitter{log: log}
	playback := &fakePlayback{}
	r := NewRecorder(&fakeSource{session: session}, sub, sink, RecorderOptions{Playback: playback})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != Recording {
		t.Fatalf("state = %v", r.State())
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start = %v", err)
	}

	for _, chunk := range []string{"RIFF", "-chunk-", "tail"} {
		if _, err := session.w.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.State() != Idle {
		t.Fatalf("state = %v", r.State())
	}
	if len(sub.audios) != 1 {
		t.Fatalf("audio submissions = %d", len(sub.audios))
	}
	audio := sub.audios[0]
	if string(audio.Data) != "RIFF-chunk-tail" || audio.MimeType != "audio/webm" || audio.Filename != "audio.webm" {
		t.Errorf("audio = %q %s %s", audio.Data, audio.MimeType, audio.Filename)
	}
	if got := log.snapshot(); len(got) != 2 || got[0] != "release" || got[1] != "submit" {
		t.Errorf("input must be released before submission, order = %v", got)
	}
	if sink.resets != 1 || playback.stops != 1 || sub.cancels != 1 {
		t.Errorf("resets=%d stops=%d cancels=%d", sink.resets, playback.stops, sub.cancels)
	}

	if err := r.Stop(context.Background()); err != nil || session.stops != 1 || len(sub.audios) != 1 {
		t.Errorf("second Stop must be a no-op: err=%v stops=%d", err, session.stops)
	}
}

func TestRecorderPermissionDenied(t *testing.T) {
	sink := &fakeSink{}
	sub := &fakeSubmitter{}
	r := NewRecorder(&fakeSource{err: errDenied}, sub, sink, RecorderOptions{})
	if err := r.Start(context.Background()); !errors.Is(err, errDenied) {
		t.Fatalf("Start = %v", err)
	}
	if r.State() != Idle || len(sink.errors) != 1 || sink.errors[0] != ErrNotAllowed {
		t.Errorf("state=%v errors=%v", r.State(), sink.errors)
	}
	if sub.cancels != 0 {
		t.Errorf("denied microphone must not cancel the in-flight translation, cancels=%d", sub.cancels)
	}
}

func TestRecorderAbortDiscards(t *testing.T) {
	session := newPipeSession(nil)
	sub := &fakeSubmitter{}
	r := NewRecorder(&fakeSource{session: session}, sub, &fakeSink{}, RecorderOptions{})
	_ = r.Start(context.Background())
	_, _ = session.w.Write([]byte("data"))

	r.Abort()
	if r.State() != Idle || session.stops != 1 {
		t.Errorf("state=%v stops=%d", r.State(), session.stops)
	}
	if len(sub.audios) != 0 {
		t.Error("abort must not submit")
	}
}

func TestRecorderEmptyRecording(t *testing.T) {
	session := newPipeSession(nil)
	sink := &fakeSink{}
	sub := &fakeSubmitter{}
	r := NewRecorder(&fakeSource{session: session}, sub, sink, RecorderOptions{})
	_ = r.Start(context.Background())
	_ = r.Stop(context.Background())
	if len(sub.audios) != 0 || len(sink.errors) != 1 || sink.errors[0] != ErrAudioCapture {
		t.Errorf("audios=%d errors=%v", len(sub.audios), sink.errors)
	}
}
