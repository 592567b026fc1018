// Package jobs persists work orders in SQLite and owns their state machine.
//
// A work order moves PENDING -> RUNNING -> DONE, or RUNNING -> FAILED. DONE
// and FAILED are terminal. The Store enforces these transitions with
// conditional updates so a stale writer cannot resurrect a finished order;
// callers receive ErrInvalidTransition instead.
//
// The database is the only shared mutable resource in the pipeline. After
// insertion an order is mutated solely by the worker that owns it.
package jobs
