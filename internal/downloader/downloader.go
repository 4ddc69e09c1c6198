package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultOnlyFilter keeps .html/.htm files and directory-like paths.
const DefaultOnlyFilter = `/(\.(html|htm)$|\/[^\.]*\/?$)/`

// Proxy configures optional forward-proxy egress for the downloader.
type Proxy struct {
	URL      string
	User     string
	Password string
}

// Enabled reports whether a proxy URL is configured.
func (p Proxy) Enabled() bool { return p.URL != "" }

// Options configures the external downloader.
type Options struct {
	// Binary is the downloader executable, resolved via PATH when not absolute.
	Binary string

	// Timeout bounds a single invocation. Default: 15m
	Timeout time.Duration

	// Concurrency is passed as -c. Default: 2
	Concurrency int

	// OnlyFilter is passed as -o.
	OnlyFilter string

	// Proxy is appended to the command line when Proxy.URL is set.
	Proxy Proxy

	// WaitDelay bounds how long to wait for output pipes after the process
	// has been killed. Default: 5s
	WaitDelay time.Duration
}

// DefaultOptions returns options matching the wayback_machine_downloader CLI.
func DefaultOptions() Options {
	return Options{
		Binary:      "wayback_machine_downloader",
		Timeout:     15 * time.Minute,
		Concurrency: 2,
		OnlyFilter:  DefaultOnlyFilter,
		WaitDelay:   5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Binary == "" {
		o.Binary = d.Binary
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.OnlyFilter == "" {
		o.OnlyFilter = d.OnlyFilter
	}
	if o.WaitDelay <= 0 {
		o.WaitDelay = d.WaitDelay
	}
	return o
}

// Invocation identifies one downloader run.
type Invocation struct {
	URL       string
	Date      string
	Directory string
}

// Args builds the argument list for inv:
//
//	<url> --to <date> --directory <dir> -o <filter> -c <n> [--proxy u [--proxy-user u] [--proxy-pass p]]
func (o Options) Args(inv Invocation) []string {
	o = o.withDefaults()
	args := []string{
		inv.URL,
		"--to", inv.Date,
		"--directory", inv.Directory,
		"-o", o.OnlyFilter,
		"-c", strconv.Itoa(o.Concurrency),
	}
	if o.Proxy.Enabled() {
		args = append(args, "--proxy", o.Proxy.URL)
		if o.Proxy.User != "" {
			args = append(args, "--proxy-user", o.Proxy.User)
		}
		if o.Proxy.Password != "" {
			args = append(args, "--proxy-pass", o.Proxy.Password)
		}
	}
	return args
}

// CommandLine renders the full command for logs with the proxy password masked.
func (o Options) CommandLine(inv Invocation) string {
	o = o.withDefaults()
	args := o.Args(inv)
	for i := 1; i < len(args); i++ {
		if args[i-1] == "--proxy-pass" {
			args[i] = "********"
		}
	}
	return o.Binary + " " + strings.Join(args, " ")
}

// Kind classifies how an invocation ended.
type Kind int

const (
	// Success means the process exited with status zero.
	Success Kind = iota
	// ToolError means the process exited with a nonzero status.
	ToolError
	// Timeout means the wall-clock limit was hit and the process was killed.
	Timeout
	// UnexpectedError covers failures to start or communicate with the process,
	// including cancellation of the parent context.
	UnexpectedError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ToolError:
		return "tool_error"
	case Timeout:
		return "timeout"
	case UnexpectedError:
		return "unexpected_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one invocation. Exactly one Kind applies.
type Outcome struct {
	Kind Kind

	// ExitCode is the process exit status, or -1 if it never exited normally.
	ExitCode int

	// Stderr holds the tail of the tool's error output for ToolError.
	Stderr string

	// Err is the cause for Timeout and UnexpectedError.
	Err error

	Duration time.Duration
}

// OK reports whether the invocation succeeded.
func (o Outcome) OK() bool { return o.Kind == Success }

func (o Outcome) String() string {
	switch o.Kind {
	case Success:
		return "success"
	case ToolError:
		return fmt.Sprintf("tool error (exit code %d)", o.ExitCode)
	case Timeout:
		return fmt.Sprintf("timeout: %v", o.Err)
	default:
		return fmt.Sprintf("unexpected error: %v", o.Err)
	}
}

// ErrTimeout is the cause recorded on Timeout outcomes.
var ErrTimeout = errors.New("downloader: timeout exceeded")

// Runner executes one invocation. Output from the tool is streamed to output.
type Runner interface {
	Run(ctx context.Context, inv Invocation, output io.Writer) Outcome
}

// Exec runs the downloader as a subprocess.
type Exec struct {
	opts Options
}

// New creates an Exec runner.
func New(opts Options) *Exec {
	return &Exec{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (e *Exec) Options() Options { return e.opts }

// CommandLine renders inv for logging with the proxy password masked.
func (e *Exec) CommandLine(inv Invocation) string { return e.opts.CommandLine(inv) }

// Run starts the downloader, waits for it under the configured timeout, and
// classifies the result. The process is killed and reaped on timeout or when
// ctx is cancelled.
func (e *Exec) Run(ctx context.Context, inv Invocation, output io.Writer) Outcome {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	if output == nil {
		output = io.Discard
	}
	out := &lockedWriter{w: output}
	tail := &tailBuffer{max: 4096}

	cmd := exec.CommandContext(runCtx, e.opts.Binary, e.opts.Args(inv)...)
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(out, tail)
	cmd.WaitDelay = e.opts.WaitDelay

	err := cmd.Run()
	outcome := classify(ctx, runCtx, err, e.opts.Timeout)
	if outcome.Kind == ToolError {
		outcome.Stderr = tail.String()
	}
	outcome.Duration = time.Since(start)
	return outcome
}

func classify(parent, runCtx context.Context, err error, timeout time.Duration) Outcome {
	if err == nil {
		return Outcome{Kind: Success, ExitCode: 0}
	}
	if parent.Err() != nil {
		return Outcome{Kind: UnexpectedError, ExitCode: -1, Err: parent.Err()}
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Outcome{Kind: Timeout, ExitCode: -1, Err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return Outcome{Kind: ToolError, ExitCode: exitErr.ExitCode()}
	}
	return Outcome{Kind: UnexpectedError, ExitCode: -1, Err: err}
}

// lockedWriter serializes writes from the stdout and stderr copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return strings.TrimSpace(string(t.buf)) }
