// Package downloader runs the external wayback_machine_downloader tool.
//
// One Invocation corresponds to one (URL, date) pair. The tool is started as
// a subprocess with a fixed argument list, its stdout and stderr are streamed
// to a caller-supplied writer, and the result is classified into a tagged
// Outcome:
//
//	outcome := downloader.New(opts).Run(ctx, downloader.Invocation{
//	    URL:       "https://example.com",
//	    Date:      "20160330",
//	    Directory: "downloads/example.com_up_to_20160330",
//	}, sink.Writer())
//	if !outcome.OK() {
//	    log.Warn("download failed", "outcome", outcome)
//	}
//
// # Timeouts
//
// Each invocation is bounded by Options.Timeout. When it expires the process
// is killed and reaped before Run returns, and the Outcome is Timeout.
// Cancelling the parent context kills the process the same way but yields
// UnexpectedError carrying the context error.
//
// # Proxy
//
// Proxy settings are passed through as --proxy, --proxy-user and
// --proxy-pass. CommandLine masks the password for logging.
package downloader
