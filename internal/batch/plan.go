package batch

import (
	"github.com/AlfonsoCorrado/wayback-scraper/internal/executor"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/input"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/window"
)

// TasksPerRow is the number of tasks derived from each input row.
const TasksPerRow = 2

// SkippedRow is an input row that produced no tasks.
type SkippedRow struct {
	Row    input.Row
	Reason string
}

// Plan expands every row into its before and after tasks, in row order.
// Rows with an empty URL or an unusable reference date are returned as
// skipped.
func Plan(rows []input.Row, calc window.Calculator, outputDir string) ([]executor.Task, []SkippedRow) {
	tasks := make([]executor.Task, 0, len(rows)*TasksPerRow)
	var skipped []SkippedRow

	for _, row := range rows {
		if row.URL == "" {
			skipped = append(skipped, SkippedRow{Row: row, Reason: "empty URL"})
			continue
		}
		w, ok := calc.Compute(row.ReferenceDate)
		if !ok {
			skipped = append(skipped, SkippedRow{Row: row, Reason: "unparsable reference date"})
			continue
		}
		for _, date := range w.Dates() {
			tasks = append(tasks, executor.NewTask(outputDir, row.URL, date))
		}
	}
	return tasks, skipped
}

// ResumeStats counts the planned tasks that already succeeded. total is
// TasksPerRow times the number of input rows, skipped rows included.
func ResumeStats(isCompleted func(executor.Task) bool, tasks []executor.Task, rows int) (completed, total int) {
	for _, t := range tasks {
		if isCompleted(t) {
			completed++
		}
	}
	return completed, rows * TasksPerRow
}
