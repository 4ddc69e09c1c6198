package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/logging"
	"github.com/AlfonsoCorrado/wayback-scraper/pkg/state"
)

// runForget removes records from the state file so the matching tasks run
// again. By default prompts for confirmation unless --force is specified.
func runForget(args []string) int {
	fs := pflag.NewFlagSet("forget", pflag.ContinueOnError)

	common := addCommonFlags(fs)
	failed := fs.Bool("failed", false, "Remove records of failed tasks")
	url := fs.String("url", "", "Remove every record of this source URL")
	all := fs.Bool("all", false, "Remove all records")
	force := fs.Bool("force", false, "Skip confirmation prompt")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: wayback-scraper forget (--failed | --url <url> | --all) [options]

Remove records from the state file. Forgotten tasks are attempted again by
the next run. Downloaded folders are left untouched.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	var filter state.Filter
	var what string
	selected := 0
	if *failed {
		filter, what = state.Failed(), "failed records"
		selected++
	}
	if *url != "" {
		filter, what = state.ForURL(*url), "records for "+*url
		selected++
	}
	if *all {
		filter, what = state.All(), "all records"
		selected++
	}
	if selected != 1 || fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --failed, --url or --all is required")
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

	// Confirm removal unless --force
	if !*force {
		fmt.Printf("Forget %s in %s? [y/N]: ", what, stateLocation(cfg))
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(os.Stderr, "Cancelled")
			return ExitSuccess
		}
	}

	removed := store.Forget(filter)
	if removed == 0 {
		fmt.Fprintln(os.Stderr, "[wayback-scraper] Nothing to forget")
		return ExitSuccess
	}
	if err := store.Save(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintf(os.Stderr, "[wayback-scraper] Forgot %d record(s)\n", removed)
	return ExitSuccess
}
