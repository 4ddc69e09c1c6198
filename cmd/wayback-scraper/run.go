package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/batch"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/config"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/downloader"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/executor"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/logging"
	"github.com/AlfonsoCorrado/wayback-scraper/pkg/state"
)

// runRun downloads the before and after snapshots for every input row,
// skipping tasks that succeeded in an earlier run.
func runRun(args []string) int {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)

	common := addCommonFlags(fs)
	binary := fs.String("downloader", "", "Downloader executable (default: wayback_machine_downloader)")
	timeout := fs.String("timeout", "", "Per-task timeout, e.g. 15m or 900 seconds (default: 15m)")
	concurrency := fs.IntP("concurrency", "c", 0, "Downloader concurrency passed as -c (default: 2)")
	proxy := fs.String("proxy", "", "Proxy URL (e.g., http://proxy.example.com:8080)")
	proxyUser := fs.String("proxy-user", "", "Proxy username for authentication")
	proxyPass := fs.String("proxy-pass", "", "Proxy password for authentication")
	urlColumn := fs.String("url-column", "", "Input column holding the URL (default: URL)")
	dateColumn := fs.String("date-column", "", "Input column holding the reference date (default: Deal Date)")
	monthsBefore := fs.Int("months-before", 0, "Months before the reference date (default: 6)")
	monthsAfter := fs.Int("months-after", 0, "Months after the reference date (default: 12)")
	dryRun := fs.Bool("dry-run", false, "Log planned tasks without downloading or writing state")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: wayback-scraper run <input.csv> [options]

Download two archived snapshots per row of a ';'-separated input file with
columns URL and Deal Date: one before and one after the reference date.
Completed tasks are recorded in the state file and skipped on later runs.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one input file is required")
		fs.Usage()
		return ExitInvalidArgs
	}
	csvPath := fs.Arg(0)

	override := common.override()
	override.Downloader = config.DownloaderConfig{Binary: *binary, Concurrency: *concurrency}
	override.Input = config.InputConfig{URLColumn: *urlColumn, DateColumn: *dateColumn}
	override.Proxy = config.ProxyConfig{URL: *proxy, User: *proxyUser, Password: *proxyPass}
	if *timeout != "" {
		d, err := config.ParseTimeout(*timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid timeout: %v\n", err)
			return ExitInvalidArgs
		}
		override.Downloader.Timeout = d
	}

	cfg, err := loadConfig(common.configPath, override)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if fs.Changed("months-before") {
		cfg.Window.MonthsBefore = *monthsBefore
	}
	if fs.Changed("months-after") {
		cfg.Window.MonthsAfter = *monthsAfter
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	if _, err := os.Stat(csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: input file '%s' does not exist\n", csvPath)
		return ExitGeneralError
	}

	outputDir, err := filepath.Abs(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		return ExitGeneralError
	}
	cfg.Output = outputDir

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: os.Stdout,
		Dir:     filepath.Join(outputDir, "logs"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	defer logger.Close()

	runID := uuid.NewString()
	log := logger.With("run_id", runID)

	log.Info("wayback scraper starting",
		"input", csvPath,
		"output", outputDir,
		"state", stateLocation(cfg),
		"months_before", cfg.Window.MonthsBefore,
		"months_after", cfg.Window.MonthsAfter,
		"timeout", cfg.Downloader.Timeout,
		"dry_run", *dryRun,
	)
	if cfg.Proxy.URL != "" {
		log.Info("using proxy", "url", cfg.Proxy.URL, "user", cfg.Proxy.User)
	} else {
		log.Info("no proxy, direct connection")
	}

	ctx, cancel := signalContext(func() {
		log.Warn("received interrupt, stopping after the current task is recorded")
	})
	defer cancel()

	store, err := openState(ctx, cfg, log)
	if err != nil {
		log.Warn("state unavailable, progress will not be persisted this run", "error", err)
		store = state.Memory(state.WithLogger(log))
	}
	defer store.Close()

	exec := executor.New(store, downloader.New(cfg.DownloaderOptions()), log, runID)
	orch := batch.New(batch.Options{
		Input:     cfg.InputOptions(),
		Window:    cfg.Calculator(),
		OutputDir: outputDir,
		DryRun:    *dryRun,
	}, store, exec, log)

	sum, err := orch.Run(ctx, csvPath)
	if err != nil {
		log.Error("scraping failed", "error", err)
		return ExitGeneralError
	}

	if sum.Interrupted {
		log.Warn("scraping interrupted, rerun to resume", "pending", sum.Pending)
		return ExitInterrupted
	}

	log.Info("scraping completed",
		"output", outputDir,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"skipped_rows", sum.SkippedRows,
	)
	return ExitSuccess
}
