package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/executor"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/input"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/logging"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/progress"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/window"
	"github.com/AlfonsoCorrado/wayback-scraper/pkg/state"
)

// Store is the subset of *state.Store used by the orchestrator.
type Store interface {
	IsCompleted(k state.Key) bool
	Len() int
	Save(ctx context.Context) error
}

// TaskRunner runs one task. *executor.Executor implements it.
type TaskRunner interface {
	RunTask(ctx context.Context, task executor.Task) executor.Result
}

// Options configures an Orchestrator.
type Options struct {
	Input     input.Options
	Window    window.Calculator
	OutputDir string

	// DryRun logs the plan without running the downloader or saving state.
	DryRun bool
}

// Summary describes a finished batch.
type Summary struct {
	Rows        int
	SkippedRows int
	Tasks       int
	Succeeded   int
	Failed      int
	Skipped     int // already completed in an earlier run
	Pending     int // not attempted, dry run or interrupted
	Interrupted bool
	Elapsed     time.Duration
}

// Orchestrator drives the executor over every task of an input file, one
// task at a time.
type Orchestrator struct {
	opts   Options
	store  Store
	runner TaskRunner
	logger *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options, store Store, runner TaskRunner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		opts:   opts,
		store:  store,
		runner: runner,
		logger: logger,
	}
}

// Run processes the input file at path. It returns an error only when the
// file cannot be read or lacks a required column; in that case no task runs
// and the state is left untouched. Task failures are counted in the Summary.
// Cancelling ctx stops the batch after the task in flight.
func (o *Orchestrator) Run(ctx context.Context, path string) (Summary, error) {
	table, err := input.ReadFile(path, o.opts.Input)
	if err != nil {
		return Summary{}, err
	}

	tasks, skippedRows := Plan(table.Rows, o.opts.Window, o.opts.OutputDir)
	for _, s := range skippedRows {
		o.logger.Warn("skipping row", "line", s.Row.Line, "url", s.Row.URL, "date", s.Row.ReferenceDate, "reason", s.Reason)
	}

	sum := Summary{
		Rows:        table.Len(),
		SkippedRows: len(skippedRows),
		Tasks:       len(tasks),
	}
	o.logger.Info("input loaded", "path", path, "rows", sum.Rows, "tasks", sum.Tasks, "skipped_rows", sum.SkippedRows)

	isCompleted := func(t executor.Task) bool { return o.store.IsCompleted(t.Key()) }
	if o.store.Len() > 0 {
		completed, total := ResumeStats(isCompleted, tasks, table.Len())
		o.logger.Info("resuming", "completed", completed, "total", total, "remaining", total-completed)
	}

	if o.opts.DryRun {
		for _, t := range tasks {
			status := "pending"
			if isCompleted(t) {
				status = "completed"
				sum.Skipped++
			} else {
				sum.Pending++
			}
			o.logger.Info("planned task", "url", t.URL, "date", t.Date, "folder", t.Folder, "status", status)
		}
		o.logger.Info("dry run finished", "tasks", sum.Tasks, "completed", sum.Skipped, "pending", sum.Pending)
		return sum, nil
	}

	reporter := progress.NewReporter(progress.Options{Total: len(tasks), Logger: o.logger})
	reporter.Start()

	for i, t := range tasks {
		if ctx.Err() != nil {
			sum.Interrupted = true
			sum.Pending = len(tasks) - i
			o.logger.Warn("batch interrupted", "remaining", sum.Pending)
			break
		}

		res := o.runner.RunTask(ctx, t)
		switch {
		case res.Skipped:
			sum.Skipped++
			reporter.TaskSkipped()
			continue
		case res.Outcome.OK():
			sum.Succeeded++
		default:
			sum.Failed++
		}
		reporter.TaskFinished(res.Outcome.OK(), res.Outcome.Duration)
	}
	if !sum.Interrupted && ctx.Err() != nil {
		sum.Interrupted = true
	}

	if err := o.store.Save(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, state.ErrNoBackend) {
		o.logger.Warn("could not save final state", "error", err)
	}

	final := reporter.Finish()
	sum.Elapsed = final.Elapsed
	if sum.Failed > 0 {
		o.logger.Warn("some tasks failed, rerun to retry them", "failed", sum.Failed)
	}
	return sum, nil
}
