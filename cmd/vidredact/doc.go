// Command vidredact runs the video redaction daemon and inspects its state.
//
// `vidredact serve` starts the HTTP API and the single redaction worker.
// The remaining commands read the job database directly (`pending`, `show`),
// talk to a running daemon (`status`, `stop`), or manage and verify the
// configuration (`config`, `check`).
package main
