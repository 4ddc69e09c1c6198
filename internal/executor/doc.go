// Package executor runs a single download task.
//
// RunTask skips tasks the state store reports as completed. Otherwise it
// creates the task folder, opens a task log inside it, runs the downloader
// and records the outcome, saving the store after every attempt. The task
// log is closed on every path out of RunTask.
package executor
