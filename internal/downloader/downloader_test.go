package downloader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/testutils"
)

func TestMain(m *testing.M) {
	testutils.RunFakeDownloader()
	os.Exit(m.Run())
}

func TestArgs(t *testing.T) {
	inv := Invocation{URL: "https://example.com/", Date: "20160330", Directory: "/out/example.com_up_to_20160330"}

	got := DefaultOptions().Args(inv)
	want := []string{
		"https://example.com/",
		"--to", "20160330",
		"--directory", "/out/example.com_up_to_20160330",
		"-o", DefaultOnlyFilter,
		"-c", "2",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestArgsProxy(t *testing.T) {
	inv := Invocation{URL: "https://example.com/", Date: "20160330", Directory: "out"}

	tests := []struct {
		name  string
		proxy Proxy
		tail  []string
	}{
		{"none", Proxy{}, []string{"-c", "2"}},
		{"url only", Proxy{URL: "http://proxy:8080"}, []string{"--proxy", "http://proxy:8080"}},
		{"with user", Proxy{URL: "http://proxy:8080", User: "bob"}, []string{"--proxy", "http://proxy:8080", "--proxy-user", "bob"}},
		{"full", Proxy{URL: "http://proxy:8080", User: "bob", Password: "pw"}, []string{"--proxy-user", "bob", "--proxy-pass", "pw"}},
		{"credentials without url", Proxy{User: "bob", Password: "pw"}, []string{"-c", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Proxy = tt.proxy
			args := opts.Args(inv)
			got := args[len(args)-len(tt.tail):]
			if strings.Join(got, "|") != strings.Join(tt.tail, "|") {
				t.Errorf("args tail = %q, want %q", got, tt.tail)
			}
		})
	}
}

func TestCommandLineRedactsPassword(t *testing.T) {
	opts := DefaultOptions()
	opts.Proxy = Proxy{URL: "http://proxy:8080", User: "bob", Password: "s3cret"}
	line := opts.CommandLine(Invocation{URL: "https://example.com", Date: "20200101", Directory: "out"})

	if strings.Contains(line, "s3cret") {
		t.Errorf("password leaked: %s", line)
	}
	if !strings.HasPrefix(line, "wayback_machine_downloader https://example.com --to 20200101") {
		t.Errorf("unexpected command line: %s", line)
	}
	if opts.Proxy.Password != "s3cret" {
		t.Error("CommandLine must not mutate options")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		Success:         "success",
		ToolError:       "tool_error",
		Timeout:         "timeout",
		UnexpectedError: "unexpected_error",
		Kind(42):        "unknown",
	} {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), k.String(), want)
		}
	}
}

func newFake(t *testing.T, mode string, timeout time.Duration) (*Exec, string) {
	t.Helper()
	bin, record := testutils.FakeDownloader(t, mode)
	return New(Options{Binary: bin, Timeout: timeout, WaitDelay: time.Second}), record
}

func TestRunSuccess(t *testing.T) {
	e, record := newFake(t, testutils.ModeOK, 30*time.Second)
	dir := t.TempDir()
	var out bytes.Buffer

	outcome := e.Run(context.Background(), Invocation{URL: "https://example.com", Date: "20160330", Directory: dir}, &out)
	if !outcome.OK() {
		t.Fatalf("expected success, got %s", outcome)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code = %d", outcome.ExitCode)
	}
	if !strings.Contains(out.String(), "Downloaded 1 file") {
		t.Errorf("stdout not captured: %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		t.Errorf("fake did not receive --directory: %v", err)
	}

	calls := testutils.RecordedCalls(t, record)
	if len(calls) != 1 || calls[0][0] != "https://example.com" || calls[0][2] != "20160330" {
		t.Errorf("unexpected calls: %q", calls)
	}
}

func TestRunToolError(t *testing.T) {
	e, _ := newFake(t, testutils.ModeFail, 30*time.Second)
	var out bytes.Buffer

	outcome := e.Run(context.Background(), Invocation{URL: "https://example.com", Date: "20160330", Directory: t.TempDir()}, &out)
	if outcome.Kind != ToolError {
		t.Fatalf("expected ToolError, got %s", outcome)
	}
	if outcome.ExitCode != testutils.FakeExitCode {
		t.Errorf("exit code = %d, want %d", outcome.ExitCode, testutils.FakeExitCode)
	}
	if !strings.Contains(outcome.Stderr, "archive returned 503") {
		t.Errorf("stderr tail = %q", outcome.Stderr)
	}
	if !strings.Contains(out.String(), "archive returned 503") || !strings.Contains(out.String(), "Getting snapshot pages") {
		t.Errorf("output not captured: %q", out.String())
	}
}

func TestRunTimeout(t *testing.T) {
	e, _ := newFake(t, testutils.ModeHang, 300*time.Millisecond)

	start := time.Now()
	outcome := e.Run(context.Background(), Invocation{URL: "https://example.com", Date: "20160330", Directory: t.TempDir()}, nil)
	if outcome.Kind != Timeout {
		t.Fatalf("expected Timeout, got %s", outcome)
	}
	if !errors.Is(outcome.Err, ErrTimeout) {
		t.Errorf("expected ErrTimeout cause, got %v", outcome.Err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("process was not killed promptly: %s", elapsed)
	}
	if outcome.Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestRunCancelled(t *testing.T) {
	e, _ := newFake(t, testutils.ModeHang, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	outcome := e.Run(ctx, Invocation{URL: "https://example.com", Date: "20160330", Directory: t.TempDir()}, nil)
	if outcome.Kind != UnexpectedError {
		t.Fatalf("expected UnexpectedError, got %s", outcome)
	}
	if !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", outcome.Err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	e := New(Options{Binary: filepath.Join(t.TempDir(), "no-such-downloader")})

	outcome := e.Run(context.Background(), Invocation{URL: "https://example.com", Date: "20160330", Directory: t.TempDir()}, nil)
	if outcome.Kind != UnexpectedError {
		t.Fatalf("expected UnexpectedError, got %s", outcome)
	}
	if outcome.Err == nil {
		t.Fatal("expected a cause")
	}
	var exitErr *exec.ExitError
	if errors.As(outcome.Err, &exitErr) {
		t.Error("missing binary must not look like a tool exit")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 8}
	tb.Write([]byte("0123456789"))
	tb.Write([]byte("ab"))
	if got := tb.String(); got != "456789ab" {
		t.Errorf("tail = %q, want %q", got, "456789ab")
	}
}
