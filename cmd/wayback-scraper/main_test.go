package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/config"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/testutils"
)

func TestMain(m *testing.M) {
	testutils.RunFakeDownloader()
	os.Exit(m.Run())
}

type cliEnv struct {
	out    string
	csv    string
	binary string
	record string
}

func newCLIEnv(t *testing.T, mode, csv string) *cliEnv {
	t.Helper()
	bin, record := testutils.FakeDownloader(t, mode)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "deals.csv")
	if err := os.WriteFile(csvPath, []byte(csv), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	for _, name := range []string{"WAYBACK_SCRAPER_OUTPUT", "WAYBACK_SCRAPER_STATE_FILE", "WAYBACK_SCRAPER_STATE_URL"} {
		t.Setenv(name, "")
	}
	return &cliEnv{
		out:    filepath.Join(dir, "downloads"),
		csv:    csvPath,
		binary: bin,
		record: record,
	}
}

func (e *cliEnv) statePath() string {
	return filepath.Join(e.out, config.StateFileName)
}

const exampleCSV = "URL;Deal Date\nhttps://example.com/;2016-09-30\n"

func TestDispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, ExitInvalidArgs},
		{"help", []string{"help"}, ExitSuccess},
		{"long help", []string{"--help"}, ExitSuccess},
		{"unknown flag", []string{"-x"}, ExitInvalidArgs},
		{"run help", []string{"run", "-h"}, ExitSuccess},
		{"run without input", []string{"run"}, ExitInvalidArgs},
		{"run with two inputs", []string{"run", "a.csv", "b.csv"}, ExitInvalidArgs},
		{"forget without selector", []string{"forget", "--force"}, ExitInvalidArgs},
		{"forget with two selectors", []string{"forget", "--failed", "--all"}, ExitInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)

	code := runRun([]string{filepath.Join(t.TempDir(), "missing.csv"), "-o", e.out, "--downloader", e.binary})
	if code != ExitGeneralError {
		t.Fatalf("expected exit %d, got %d", ExitGeneralError, code)
	}
	if _, err := os.Stat(e.out); !os.IsNotExist(err) {
		t.Error("output directory should not be created for a missing input")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)

	for _, args := range [][]string{
		{e.csv, "-o", e.out, "--log-level", "loud"},
		{e.csv, "-o", e.out, "--timeout", "later"},
		{e.csv, "-o", e.out, "--proxy-user", "bob"},
		{e.csv, "-o", e.out, "--months-before", "-1"},
	} {
		if code := runRun(args); code != ExitInvalidArgs {
			t.Errorf("runRun(%q) = %d, want %d", args, code, ExitInvalidArgs)
		}
	}
}

func TestRunMissingColumn(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, "URL;Date\nhttps://example.com/;2016-09-30\n")

	code := runRun([]string{e.csv, "-o", e.out, "--downloader", e.binary})
	if code != ExitGeneralError {
		t.Fatalf("expected exit %d, got %d", ExitGeneralError, code)
	}
	if calls := testutils.RecordedCalls(t, e.record); len(calls) != 0 {
		t.Errorf("expected no downloads, got %d", len(calls))
	}
	if _, err := os.Stat(e.statePath()); !os.IsNotExist(err) {
		t.Error("state file should not be written")
	}
}

func TestRunAndStatus(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)

	code := run([]string{"run", e.csv, "-o", e.out, "--downloader", e.binary, "-c", "3"})
	if code != ExitSuccess {
		t.Fatalf("run failed with exit code %d", code)
	}

	calls := testutils.RecordedCalls(t, e.record)
	if len(calls) != 2 {
		t.Fatalf("expected 2 downloads, got %d", len(calls))
	}
	if calls[0][2] != "20160330" || calls[1][2] != "20170930" {
		t.Errorf("unexpected dates: %q, %q", calls[0][2], calls[1][2])
	}
	if calls[0][len(calls[0])-1] != "3" {
		t.Errorf("concurrency flag not passed: %q", calls[0])
	}

	for _, path := range []string{
		e.statePath(),
		filepath.Join(e.out, "logs", "wayback_scraper.log"),
		filepath.Join(e.out, "example.com_up_to_20160330", "download_20160330.log"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s: %v", path, err)
		}
	}

	if code := runStatus([]string{e.csv, "-o", e.out}); code != ExitSuccess {
		t.Errorf("status failed with exit code %d", code)
	}

	if err := os.RemoveAll(filepath.Join(e.out, "example.com_up_to_20170930")); err != nil {
		t.Fatal(err)
	}
	if code := runStatus([]string{"-o", e.out}); code != ExitValidationFailed {
		t.Errorf("expected exit %d for missing folder, got %d", ExitValidationFailed, code)
	}
}

func TestRunImplicitCommandResumes(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)
	testutils.FailOn(t, "20170930")

	if code := run([]string{e.csv, "-o", e.out, "--downloader", e.binary}); code != ExitSuccess {
		t.Fatalf("partial failures must not fail the run, got exit %d", code)
	}
	if n := len(testutils.RecordedCalls(t, e.record)); n != 2 {
		t.Fatalf("expected 2 downloads, got %d", n)
	}

	if err := os.Remove(e.record); err != nil {
		t.Fatal(err)
	}
	t.Setenv(testutils.EnvFakeFailOn, "")

	if code := run([]string{e.csv, "-o", e.out, "--downloader", e.binary}); code != ExitSuccess {
		t.Fatalf("second run failed with exit %d", code)
	}
	calls := testutils.RecordedCalls(t, e.record)
	if len(calls) != 1 || calls[0][2] != "20170930" {
		t.Errorf("expected only the failed task to be retried, got %q", calls)
	}
}

func TestForget(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)

	if code := runRun([]string{e.csv, "-o", e.out, "--downloader", e.binary}); code != ExitSuccess {
		t.Fatalf("run failed with exit code %d", code)
	}
	if code := runForget([]string{"-o", e.out, "--url", "https://example.com/", "--force"}); code != ExitSuccess {
		t.Fatalf("forget failed with exit code %d", code)
	}

	if err := os.Remove(e.record); err != nil {
		t.Fatal(err)
	}
	if code := runRun([]string{e.csv, "-o", e.out, "--downloader", e.binary}); code != ExitSuccess {
		t.Fatalf("rerun failed with exit code %d", code)
	}
	if n := len(testutils.RecordedCalls(t, e.record)); n != 2 {
		t.Errorf("expected forgotten tasks to run again, got %d downloads", n)
	}
}

func TestRunDryRun(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)

	if code := runRun([]string{e.csv, "-o", e.out, "--downloader", e.binary, "--dry-run"}); code != ExitSuccess {
		t.Fatalf("dry run failed with exit code %d", code)
	}
	if n := len(testutils.RecordedCalls(t, e.record)); n != 0 {
		t.Errorf("dry run must not download, got %d calls", n)
	}
	if _, err := os.Stat(e.statePath()); !os.IsNotExist(err) {
		t.Error("dry run must not write state")
	}
}

func TestRunExplicitStateFile(t *testing.T) {
	e := newCLIEnv(t, testutils.ModeOK, exampleCSV)
	statePath := filepath.Join(t.TempDir(), "elsewhere", "state.json")

	if code := runRun([]string{e.csv, "-o", e.out, "-s", statePath, "--downloader", e.binary}); code != ExitSuccess {
		t.Fatalf("run failed with exit code %d", code)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Errorf("expected state at %s: %v", statePath, err)
	}
	if _, err := os.Stat(e.statePath()); !os.IsNotExist(err) {
		t.Error("default state path should be unused")
	}
}
