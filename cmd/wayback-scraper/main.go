package main

import (
	"fmt"
	"os"
	"strings"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitStorageError     = 5
	ExitValidationFailed = 7
	ExitInterrupted      = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		return runRun(cmdArgs)
	case "status":
		return runStatus(cmdArgs)
	case "forget":
		return runForget(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		// wayback-scraper deals.csv -o downloads
		if !strings.HasPrefix(command, "-") || len(args) > 1 {
			return runRun(args)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: wayback-scraper <command> [options]

Commands:
  run       Download archived snapshots for every row of an input file
  status    Summarize the state file and check completed folders exist
  forget    Remove records from the state file so tasks run again

The command may be omitted: 'wayback-scraper deals.csv' is 'wayback-scraper run deals.csv'.

Run 'wayback-scraper <command> -h' for command-specific help.`)
}
