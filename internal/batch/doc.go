// Package batch turns an input file into download tasks and runs them.
//
// Every row yields two tasks, one per date of its window. Rows without a
// usable reference date are logged and skipped. Tasks run strictly one after
// another; a failed task never stops the batch, and is retried by the next
// run because it is not recorded as completed.
//
// When the state store already holds records, resume statistics are logged
// before the first task: completed tasks out of two per input row.
package batch
