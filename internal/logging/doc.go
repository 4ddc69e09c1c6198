// Package logging builds the process logger and per-task log sinks.
//
// The process logger writes text records to the console and, when a
// directory is given, appends them to <dir>/wayback_scraper.log.
//
// Every task gets its own TaskSink at <task folder>/download_<date>.log. A
// sink is opened right before a task runs and closed when it returns; it is
// passed explicitly to whoever needs it and never registered globally:
//
//	sink, err := logging.OpenTaskSink(folder, date)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//	sink.Logger().Info("starting download")
package logging
