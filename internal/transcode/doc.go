// Package transcode drives ffmpeg for the redaction pipeline.
//
// Frames travel as raw rgb24 over pipes: a FrameReader decodes the source
// sequentially, a FrameWriter feeds processed frames into a silent
// intermediate stream. Encode then produces an H.264 stream and Remux puts the
// source audio back on it.
package transcode
