package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MainLogFile is the process log file name, placed under <output>/logs.
const MainLogFile = "wayback_scraper.log"

// Options configures the process logger.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// Console receives every record. Default: os.Stdout.
	Console io.Writer

	// Dir, when set, adds an append-mode file sink at Dir/MainLogFile.
	Dir string
}

// Logger is a process logger together with the files it owns.
type Logger struct {
	*slog.Logger

	path  string
	close func() error
}

// New creates the process logger. The caller must Close it.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{close: func() error { return nil }}
	out := console

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		l.path = filepath.Join(opts.Dir, MainLogFile)
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		l.close = f.Close
	}

	l.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: LevelFromString(opts.Level),
	}))
	return l, nil
}

// Path returns the log file path, or "" when logging only to the console.
func (l *Logger) Path() string { return l.path }

// Close releases the log file.
func (l *Logger) Close() error { return l.close() }

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LevelFromString maps a level name to a slog.Level.
func LevelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// TaskSink is a log destination scoped to a single task. It is independent of
// the process logger and must be closed when the task finishes.
type TaskSink struct {
	logger *slog.Logger
	file   *os.File
	path   string
	closed bool
}

// TaskLogName returns the per-task log file name for a snapshot date.
func TaskLogName(date string) string {
	return "download_" + date + ".log"
}

// OpenTaskSink creates (truncating) dir/download_<date>.log.
func OpenTaskSink(dir, date string) (*TaskSink, error) {
	path := filepath.Join(dir, TaskLogName(date))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: open task log: %w", err)
	}
	return &TaskSink{
		logger: slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})),
		file:   f,
		path:   path,
	}, nil
}

// Logger returns the structured logger writing to the task log.
func (s *TaskSink) Logger() *slog.Logger { return s.logger }

// Writer returns the raw task log, used for captured tool output.
func (s *TaskSink) Writer() io.Writer { return s.file }

// Path returns the task log path.
func (s *TaskSink) Path() string { return s.path }

// Close flushes and closes the task log. It is safe to call more than once.
func (s *TaskSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.file.Sync(), s.file.Close())
}
