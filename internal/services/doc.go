// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp work order IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so the workflow can label
//     failures consistently (validation vs external tool vs transient).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
