package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/pflag"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/batch"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/executor"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/input"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/logging"
)

// runStatus summarizes the state file and checks that every successful
// task still has its folder on disk. With an input file it also reports
// how much of that input is already done.
func runStatus(args []string) int {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)

	common := addCommonFlags(fs)
	verbose := fs.BoolP("verbose", "v", false, "List every failed task")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: wayback-scraper status [input.csv] [options]

Summarize the state file and verify that the folder of every completed task
exists under the output directory. Exits 7 when folders are missing.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: at most one input file may be given")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(common.configPath, common.override())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext(nil)
	defer cancel()

	logger, err := logging.New(logging.Options{Level: "warn", Console: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	defer logger.Close()

	store, err := openState(ctx, cfg, logger.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	defer store.Close()

	sum := store.Summarize()
	fmt.Printf("State: %s\n", stateLocation(cfg))
	fmt.Printf("Records: %d\n", sum.Records)
	fmt.Printf("Succeeded: %d\n", sum.Succeeded)
	fmt.Printf("Failed: %d\n", sum.Failed)
	if len(sum.ByOutcome) > 0 {
		outcomes := make([]string, 0, len(sum.ByOutcome))
		for o := range sum.ByOutcome {
			outcomes = append(outcomes, o)
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			fmt.Printf("  %s: %d\n", o, sum.ByOutcome[o])
		}
	}
	if !sum.LastAt.IsZero() {
		fmt.Printf("Last update: %s (run %s)\n", sum.LastAt.Format("2006-01-02 15:04:05 MST"), sum.LastRunID)
	}

	if *verbose && sum.Failed > 0 {
		fmt.Println("\nFailed tasks:")
		for _, e := range store.Entries() {
			if !e.Success {
				fmt.Printf("  - %s %s [%s]\n", e.URL, e.Date, e.Outcome)
			}
		}
	}

	if fs.NArg() == 1 {
		table, err := input.ReadFile(fs.Arg(0), cfg.InputOptions())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
		tasks, skipped := batch.Plan(table.Rows, cfg.Calculator(), cfg.Output)
		completed, total := batch.ResumeStats(func(t executor.Task) bool {
			return store.IsCompleted(t.Key())
		}, tasks, table.Len())
		fmt.Printf("\nInput: %s\n", fs.Arg(0))
		fmt.Printf("Rows: %d (%d skipped)\n", table.Len(), len(skipped))
		fmt.Printf("Completed: %d/%d tasks\n", completed, total)
	}

	outputDir, err := filepath.Abs(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	result, err := store.Validate(outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	if result.Valid {
		fmt.Println("\nStatus: VALID")
		return ExitSuccess
	}

	fmt.Println("\nStatus: INVALID")
	fmt.Printf("Missing folders: %d of %d\n", result.Missing, result.Checked)
	if len(result.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Println("\nRun 'wayback-scraper forget --url <url>' to download missing tasks again.")

	return ExitValidationFailed
}
