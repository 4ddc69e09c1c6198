package progress

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of tasks in the batch, including ones that will
	// be skipped as already completed.
	Total int

	// Logger receives progress records.
	// Default: text logger on stdout
	Logger *slog.Logger

	// Now is the clock used for elapsed time and ETA.
	// Default: time.Now
	Now func() time.Time
}

// Snapshot is a point-in-time view of batch progress.
type Snapshot struct {
	Total     int
	Done      int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration

	// ETA is the estimated time left, or zero until a task has been
	// attempted.
	ETA time.Duration
}

// Percent returns the share of tasks done.
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// Reporter tracks task completion and logs a progress line per task.
type Reporter struct {
	opts Options

	startTime   time.Time
	succeeded   atomic.Int32
	failed      atomic.Int32
	skipped     atomic.Int32
	attemptedNs atomic.Int64
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Reporter{opts: opts}
}

// Start records the start time and logs the batch size.
func (r *Reporter) Start() {
	r.startTime = r.opts.Now()
	r.opts.Logger.Info("batch started", "tasks", r.opts.Total)
}

// TaskSkipped counts a task that was already completed.
func (r *Reporter) TaskSkipped() {
	r.skipped.Add(1)
}

// TaskFinished counts an attempted task and logs progress.
func (r *Reporter) TaskFinished(ok bool, took time.Duration) {
	if ok {
		r.succeeded.Add(1)
	} else {
		r.failed.Add(1)
	}
	r.attemptedNs.Add(int64(took))
	r.printProgress()
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	s := Snapshot{
		Total:     r.opts.Total,
		Succeeded: int(r.succeeded.Load()),
		Failed:    int(r.failed.Load()),
		Skipped:   int(r.skipped.Load()),
		Elapsed:   r.opts.Now().Sub(r.startTime),
	}
	s.Done = s.Succeeded + s.Failed + s.Skipped

	// Skipped tasks cost nothing, so the estimate uses attempted tasks only.
	if attempted := s.Succeeded + s.Failed; attempted > 0 {
		remaining := s.Total - s.Done
		if remaining > 0 {
			mean := time.Duration(r.attemptedNs.Load() / int64(attempted))
			s.ETA = mean * time.Duration(remaining)
		}
	}
	return s
}

// printProgress logs the current progress line.
func (r *Reporter) printProgress() {
	s := r.Snapshot()
	eta := "calculating..."
	if s.ETA > 0 {
		eta = formatDuration(s.ETA)
	} else if s.Done >= s.Total {
		eta = "done"
	}

	r.opts.Logger.Info("progress",
		"done", fmt.Sprintf("%d/%d", s.Done, s.Total),
		"percent", fmt.Sprintf("%.1f%%", s.Percent()),
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"skipped", s.Skipped,
		"eta", eta,
	)
}

// Finish logs the final counters and returns them.
func (r *Reporter) Finish() Snapshot {
	s := r.Snapshot()
	r.opts.Logger.Info("batch finished",
		"tasks", s.Total,
		"done", s.Done,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"skipped", s.Skipped,
		"elapsed", formatDuration(s.Elapsed),
	)
	return s
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatDuration is exported for use by other packages.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
