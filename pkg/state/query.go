package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Summary aggregates the records in a store.
type Summary struct {
	Records   int
	Succeeded int
	Failed    int
	ByOutcome map[string]int
	LastRunID string
	LastAt    time.Time
}

// Summarize counts records by success and outcome.
func (s *Store) Summarize() Summary {
	sum := Summary{ByOutcome: make(map[string]int)}
	for _, e := range s.Entries() {
		sum.Records++
		if e.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		if e.Outcome != "" {
			sum.ByOutcome[e.Outcome]++
		}
		if e.CompletedAt.After(sum.LastAt) {
			sum.LastAt = e.CompletedAt
			sum.LastRunID = e.RunID
		}
	}
	return sum
}

// ValidationResult contains the results of checking records against disk.
type ValidationResult struct {
	Valid   bool     // true if every successful record has its folder
	Checked int      // number of successful records checked
	Missing int      // number of successful records without a folder
	Errors  []string // detailed messages
}

// Validate checks that the folder of every successful record exists under
// outputDir. Missing folders are reported in the result, not as an error;
// an error is returned only when a folder cannot be inspected.
func (s *Store) Validate(outputDir string) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:  true,
		Errors: make([]string, 0),
	}

	for _, e := range s.Entries() {
		if !e.Success {
			continue
		}
		result.Checked++

		path := filepath.Join(outputDir, e.Folder)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			result.Valid = false
			result.Missing++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: folder missing: %s", e.Key, path))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("state: check %s: %w", path, err)
		}
		if !info.IsDir() {
			result.Valid = false
			result.Missing++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: not a directory: %s", e.Key, path))
		}
	}

	return result, nil
}

// Filter selects records for Forget.
type Filter func(Entry) bool

// All matches every record.
func All() Filter {
	return func(Entry) bool { return true }
}

// Failed matches unsuccessful records.
func Failed() Filter {
	return func(e Entry) bool { return !e.Success }
}

// ForURL matches records for one source URL.
func ForURL(url string) Filter {
	return func(e Entry) bool { return e.URL == url }
}

// Forget removes every record matched by filter and returns how many were
// removed. The change is persisted by the next Save.
func (s *Store) Forget(filter Filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, r := range s.records {
		if filter(Entry{Key: k, Record: r}) {
			delete(s.records, k)
			n++
		}
	}
	return n
}
