// Package workflow runs accepted work orders one at a time.
//
// The Manager owns an unbounded in-memory FIFO of work IDs and a single
// worker goroutine that drains it in arrival order. For every ID the worker
// loads the order, asks the upstream service whether to proceed, moves the
// record through PENDING -> RUNNING -> DONE|FAILED, runs the redaction stage on
// a dedicated executor goroutine, and always releases the order's artifacts
// afterwards. Errors and panics inside the stage become FAILED records; they
// never stop the worker.
//
// Recover is called once at daemon start: orders left RUNNING by a crash are
// failed and PENDING orders are queued again, since the FIFO itself is not
// persisted.
package workflow
