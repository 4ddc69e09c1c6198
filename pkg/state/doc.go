// Package state persists task outcomes so interrupted batches can resume.
//
// A Store maps a structured Key (source URL, target date, task folder) to the
// Record of the most recent attempt. It is loaded once at start and saved in
// full after every task, so a crash loses at most the task in flight.
//
// # Storage
//
// Persistence goes through gocloud.dev/blob. [OpenFile] keeps the document
// on local disk and [OpenURL] accepts any bucket URL (s3://, gs://, mem://).
// Either way [Save] replaces the document in one step.
//
// # Document
//
//	{
//	  "version": 1,
//	  "updated_at": "2026-01-02T03:04:05Z",
//	  "tasks": [
//	    {"url": "https://example.com/", "date": "20160330",
//	     "folder": "example.com_up_to_20160330", "success": true, ...}
//	  ]
//	}
//
// Changing how keys are derived invalidates every stored record, so the
// scheme is versioned. A document with another version, or one that cannot
// be decoded, is treated as empty and a warning is logged.
//
// # Resume
//
// [Store.IsCompleted] is true only for records with Success set; failed
// attempts are retried by the next run.
package state
