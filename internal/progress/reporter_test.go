package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestReporter(total int) (*Reporter, *fakeClock, *bytes.Buffer) {
	var buf bytes.Buffer
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewReporter(Options{
		Total:  total,
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
		Now:    clock.Now,
	})
	return r, clock, &buf
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m 30s"},
		{59*time.Minute + 59*time.Second, "59m 59s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h 3m 4s"},
	}

	for _, tt := range tests {
		result := FormatDuration(tt.input)
		if result != tt.expected {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestReporterCounts(t *testing.T) {
	r, _, _ := newTestReporter(4)
	r.Start()

	r.TaskSkipped()
	r.TaskFinished(true, time.Minute)
	r.TaskFinished(false, time.Minute)

	s := r.Snapshot()
	if s.Done != 3 || s.Succeeded != 1 || s.Failed != 1 || s.Skipped != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
	if s.Percent() != 75 {
		t.Errorf("expected 75%%, got %.1f", s.Percent())
	}
}

func TestReporterETA(t *testing.T) {
	r, _, buf := newTestReporter(10)
	r.Start()

	if eta := r.Snapshot().ETA; eta != 0 {
		t.Errorf("expected no ETA before any attempt, got %v", eta)
	}

	r.TaskSkipped()
	r.TaskSkipped()
	r.TaskFinished(true, 2*time.Minute)
	r.TaskFinished(true, 4*time.Minute)

	// mean 3m, 6 tasks left
	if eta := r.Snapshot().ETA; eta != 18*time.Minute {
		t.Errorf("expected 18m ETA, got %v", eta)
	}
	if !strings.Contains(buf.String(), `eta="18m 0s"`) {
		t.Errorf("progress line missing ETA: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "done=4/10") {
		t.Errorf("progress line missing count: %s", buf.String())
	}
}

func TestReporterFinish(t *testing.T) {
	r, clock, buf := newTestReporter(2)
	r.Start()
	clock.t = clock.t.Add(90 * time.Second)

	r.TaskFinished(true, 45*time.Second)
	r.TaskFinished(false, 45*time.Second)
	s := r.Finish()

	if s.Elapsed != 90*time.Second {
		t.Errorf("expected 90s elapsed, got %v", s.Elapsed)
	}
	if s.ETA != 0 {
		t.Errorf("expected no ETA when done, got %v", s.ETA)
	}
	out := buf.String()
	if !strings.Contains(out, "eta=done") {
		t.Errorf("final progress line should report done: %s", out)
	}
	if !strings.Contains(out, `msg="batch finished"`) || !strings.Contains(out, `elapsed="1m 30s"`) {
		t.Errorf("missing summary: %s", out)
	}
}

func TestEmptyBatch(t *testing.T) {
	r, _, _ := newTestReporter(0)
	r.Start()
	s := r.Finish()
	if s.Percent() != 100 {
		t.Errorf("empty batch should be 100%%, got %.1f", s.Percent())
	}
}
