// Package daemon coordinates the long-running vidredact process.
//
// It wires the work order store, the workflow manager and the HTTP API into a
// single lifecycle guarded by a flock-based lock so only one instance owns a
// work directory. Start performs the startup maintenance (log retention,
// stale artifact sweep, recovery of interrupted and pending orders) before the
// worker and the API begin serving.
//
// Keep orchestration logic here: pipeline steps live in redact and workflow,
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
