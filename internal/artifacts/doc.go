// Package artifacts tracks the files one work order creates on local disk and
// removes them when the job ends, whatever the outcome.
//
// Cleanup is best effort: each file is removed independently, a file that is
// already gone is fine, and failures are reported to the caller instead of
// being raised. SweepStale handles files orphaned by a crash.
package artifacts
