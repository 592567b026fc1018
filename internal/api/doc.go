// Package api serves the HTTP surface of the redaction daemon with gin.
//
// # Routes
//
// POST /mp-editvideo/: multipart ingestion. Saves the upload under the
// downloads directory, inserts a PENDING work order and queues it. Responds
// {"message":200} before any processing happens.
//
// GET /mp-downloadvideo/?worknum=: presigned link to the redacted artifact
// plus per-class durations rendered as strings.
//
// GET /mp-findlist/: PENDING work IDs in numeric ID order.
//
// GET /mp-status/?worknum=: lifecycle state of one order.
//
// GET /healthz and GET /metrics: liveness with worker summary, and the
// Prometheus exposition.
//
// # Design Notes
//
// Wire keys stay snake_case to match the upstream service that already calls
// these routes. Handlers depend only on small interfaces (jobs.Repository,
// blobstore.Store, Enqueuer) so tests drive them through httptest with a real
// SQLite store and the in-memory blob store.
package api
