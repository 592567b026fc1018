// Package preflight provides readiness checks for the filesystem paths and
// services vidredact depends on.
//
// The daemon runs the directory checks at startup and refuses to start when
// the work tree is not writable. The CLI "vidredact check" command runs
// everything, including detector and bucket reachability, and renders the
// results as a table.
package preflight
