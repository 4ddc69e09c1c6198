// Package progress reports batch progress.
//
// The reporter counts tasks as they finish and logs one progress line per
// attempted task, with an ETA derived from the mean duration of the tasks
// attempted so far. Skipped tasks count towards completion but not towards
// the estimate.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Total:  len(tasks),
//	    Logger: logger,
//	})
//
//	reporter.Start()
//	for _, task := range tasks {
//	    res := exec.RunTask(ctx, task)
//	    if res.Skipped {
//	        reporter.TaskSkipped()
//	        continue
//	    }
//	    reporter.TaskFinished(res.Outcome.OK(), res.Outcome.Duration)
//	}
//	reporter.Finish()
//
// # Output Format
//
//	level=INFO msg=progress done=3/10 percent=30.0% succeeded=2 failed=0 skipped=1 eta="14m 0s"
package progress
