// Package ffprobe wraps ffprobe JSON output with the stream facts the
// redaction pipeline needs: frame size, frame rate, and audio presence.
package ffprobe
