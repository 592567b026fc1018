// Package redact runs a work order's video through detection and mosaic
// redaction and reduces the detections to per-class on-screen durations.
//
// Engine.Run is the blocking end-to-end stage: probe, decode frame by frame,
// detect and mosaic, write a silent intermediate stream, dump detections to
// JSON, aggregate, re-encode, remux the source audio and upload the result.
package redact
