// Package testutils provides shared test infrastructure.
//
// The fake downloader lets tests exercise real subprocess handling without
// the actual wayback_machine_downloader installed: the test binary re-executes
// itself and TestMain turns it into the fake tool.
//
//	func TestMain(m *testing.M) {
//	    testutils.RunFakeDownloader()
//	    os.Exit(m.Run())
//	}
package testutils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Environment variables read by the fake downloader process.
const (
	EnvFakeMode   = "WAYBACK_SCRAPER_FAKE_MODE"
	EnvFakeRecord = "WAYBACK_SCRAPER_FAKE_RECORD"
	EnvFakeFailOn = "WAYBACK_SCRAPER_FAKE_FAIL_ON"
)

// Fake downloader behaviors.
const (
	// ModeOK exits 0 after writing an index.html into --directory.
	ModeOK = "ok"
	// ModeFail writes to stderr and exits with FakeExitCode.
	ModeFail = "fail"
	// ModeHang sleeps far longer than any test timeout.
	ModeHang = "hang"
)

// FakeExitCode is the status used by ModeFail.
const FakeExitCode = 3

const argSeparator = "\x1f"

// RunFakeDownloader turns the current process into the fake downloader when
// EnvFakeMode is set, and never returns in that case. Call it first thing in
// TestMain.
func RunFakeDownloader() {
	mode := os.Getenv(EnvFakeMode)
	if mode == "" {
		return
	}
	args := os.Args[1:]

	if path := os.Getenv(EnvFakeRecord); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintln(f, strings.Join(args, argSeparator))
			f.Close()
		}
	}

	if needle := os.Getenv(EnvFakeFailOn); needle != "" {
		mode = ModeOK
		for _, a := range args {
			if strings.Contains(a, needle) {
				mode = ModeFail
			}
		}
	}

	switch mode {
	case ModeOK:
		if dir := flagValue(args, "--directory"); dir != "" {
			os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644)
		}
		fmt.Println("Downloaded 1 file")
		os.Exit(0)
	case ModeHang:
		fmt.Println("Getting snapshot pages")
		time.Sleep(10 * time.Minute)
		os.Exit(0)
	default:
		fmt.Println("Getting snapshot pages")
		fmt.Fprintln(os.Stderr, "Error: archive returned 503")
		os.Exit(FakeExitCode)
	}
}

// FakeDownloader configures the fake for the current test and returns the
// binary to invoke and the file recording each call's arguments.
func FakeDownloader(t *testing.T, mode string) (binary, record string) {
	t.Helper()

	binary, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve test binary: %v", err)
	}
	record = filepath.Join(t.TempDir(), "calls.log")
	t.Setenv(EnvFakeMode, mode)
	t.Setenv(EnvFakeRecord, record)
	return binary, record
}

// FailOn makes the fake fail only for invocations with an argument containing needle.
func FailOn(t *testing.T, needle string) {
	t.Helper()
	t.Setenv(EnvFakeFailOn, needle)
}

// RecordedCalls returns the argument lists of every fake invocation so far.
func RecordedCalls(t *testing.T, record string) [][]string {
	t.Helper()

	f, err := os.Open(record)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("open call record: %v", err)
	}
	defer f.Close()

	var calls [][]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		calls = append(calls, strings.Split(sc.Text(), argSeparator))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("read call record: %v", err)
	}
	return calls
}

func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}
