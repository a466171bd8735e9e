package ggframe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	slogger().Info("hello", "frame", 3)
	if !strings.Contains(buf.String(), "frame=3") {
		t.Errorf("log output = %q, want frame=3", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}

func TestSetLoggerConcurrentWithReads(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			_ = Logger()
		}
	}()
	for range 100 {
		SetLogger(l)
	}
	<-done
}

func TestStageString(t *testing.T) {
	want := []string{"Setup", "Extract", "Prepare", "Render", "Cleanup"}
	for s := Stage(0); s < stageCount; s++ {
		if got := s.String(); got != want[s] {
			t.Errorf("Stage(%d).String() = %q, want %q", s, got, want[s])
		}
	}
	if got := Stage(stageCount).String(); got != "Unknown" {
		t.Errorf("out of range stage = %q, want Unknown", got)
	}
	if frameStages[0] != StageExtract || frameStages[len(frameStages)-1] != StageCleanup {
		t.Errorf("frameStages = %v", frameStages)
	}
}

func TestFrameErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	var err error = &FrameError{Frame: 4, Stage: StagePrepare, Err: &ProducerError{Producer: "text", Stage: StagePrepare, Err: cause}}

	if !errors.Is(err, cause) {
		t.Error("errors.Is through FrameError and ProducerError failed")
	}
	var pe *ProducerError
	if !errors.As(err, &pe) || pe.Producer != "text" {
		t.Errorf("errors.As ProducerError = %v", pe)
	}
	if got := err.Error(); !strings.Contains(got, "frame 4") || !strings.Contains(got, "Prepare") {
		t.Errorf("Error() = %q", got)
	}
}
