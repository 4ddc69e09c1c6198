package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/downloader"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/logging"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/naming"
	"github.com/AlfonsoCorrado/wayback-scraper/pkg/state"
)

// Store is the subset of *state.Store used by the executor.
type Store interface {
	IsCompleted(k state.Key) bool
	MarkCompleted(k state.Key, success bool, opts ...state.MarkOption)
	Save(ctx context.Context) error
}

// Runner runs the external downloader and can describe the command it runs.
type Runner interface {
	downloader.Runner
	CommandLine(inv downloader.Invocation) string
}

// Task is one (URL, date) download.
type Task struct {
	URL    string
	Date   string
	Folder string // base name of Dir, also part of the state key
	Dir    string
}

// NewTask derives the task folder for url and date under outputDir.
func NewTask(outputDir, url, date string) Task {
	folder := naming.TaskFolder(url, date)
	return Task{
		URL:    url,
		Date:   date,
		Folder: folder,
		Dir:    filepath.Join(outputDir, folder),
	}
}

// Key returns the state key of the task.
func (t Task) Key() state.Key {
	return state.Key{URL: t.URL, Date: t.Date, Folder: t.Folder}
}

// Result describes what RunTask did.
type Result struct {
	Task    Task
	Skipped bool
	Outcome downloader.Outcome
	LogPath string
}

// Executor runs tasks one at a time and records their outcomes.
type Executor struct {
	store  Store
	runner Runner
	logger *slog.Logger
	runID  string
}

// New creates an Executor. logger receives the process-wide records; each
// task additionally gets its own log file.
func New(store Store, runner Runner, logger *slog.Logger, runID string) *Executor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{
		store:  store,
		runner: runner,
		logger: logger,
		runID:  runID,
	}
}

// RunTask executes one task unless it already succeeded in a previous run.
// Every attempted task is recorded and the store saved, whatever the
// outcome. Failures are reported in the Result, never returned.
func (e *Executor) RunTask(ctx context.Context, task Task) Result {
	log := e.logger.With("url", task.URL, "date", task.Date)
	key := task.Key()

	if e.store.IsCompleted(key) {
		log.Info("skipping completed task", "folder", task.Folder)
		return Result{Task: task, Skipped: true}
	}

	res := Result{Task: task}
	res.Outcome = e.attempt(ctx, task, &res.LogPath)

	switch res.Outcome.Kind {
	case downloader.Success:
		log.Info("download completed", "folder", task.Folder, "duration", res.Outcome.Duration.Round(100*time.Millisecond))
	case downloader.ToolError:
		log.Error("downloader failed", "exit_code", res.Outcome.ExitCode, "stderr", res.Outcome.Stderr, "log", res.LogPath)
	case downloader.Timeout:
		log.Error("download timed out", "error", res.Outcome.Err, "log", res.LogPath)
	default:
		log.Error("download failed unexpectedly", "error", res.Outcome.Err, "log", res.LogPath)
	}

	e.store.MarkCompleted(key, res.Outcome.OK(),
		state.WithOutcome(res.Outcome.Kind.String()),
		state.WithDuration(res.Outcome.Duration),
		state.WithExitCode(res.Outcome.ExitCode),
		state.WithRunID(e.runID),
	)
	// The record must reach disk even when the run is being interrupted.
	if err := e.store.Save(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, state.ErrNoBackend) {
			log.Debug("state kept in memory only")
		} else {
			log.Warn("could not save state, continuing in memory", "error", err)
		}
	}
	return res
}

// attempt prepares the task folder and log, then runs the downloader.
// Setup failures are reported as UnexpectedError.
func (e *Executor) attempt(ctx context.Context, task Task, logPath *string) downloader.Outcome {
	start := time.Now()
	unexpected := func(err error) downloader.Outcome {
		return downloader.Outcome{
			Kind:     downloader.UnexpectedError,
			ExitCode: -1,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	if err := os.MkdirAll(task.Dir, 0755); err != nil {
		return unexpected(fmt.Errorf("create task folder: %w", err))
	}

	sink, err := logging.OpenTaskSink(task.Dir, task.Date)
	if err != nil {
		return unexpected(err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			e.logger.Warn("could not close task log", "path", sink.Path(), "error", err)
		}
	}()
	*logPath = sink.Path()

	inv := downloader.Invocation{URL: task.URL, Date: task.Date, Directory: task.Dir}
	tlog := sink.Logger()
	tlog.Info("starting download", "url", task.URL, "date", task.Date, "folder", task.Folder, "run_id", e.runID)
	tlog.Info("command", "line", e.runner.CommandLine(inv))
	e.logger.Debug("running downloader", "command", e.runner.CommandLine(inv))

	outcome := e.runner.Run(ctx, inv, sink.Writer())

	attrs := []any{"outcome", outcome.Kind.String(), "duration", outcome.Duration.Round(100 * time.Millisecond)}
	switch outcome.Kind {
	case downloader.Success:
		tlog.Info("download completed", attrs...)
	case downloader.ToolError:
		tlog.Error("downloader exited with error", append(attrs, "exit_code", outcome.ExitCode)...)
	default:
		tlog.Error("download failed", append(attrs, "error", outcome.Err)...)
	}
	return outcome
}
