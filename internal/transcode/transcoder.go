package transcode

import (
	"context"
	"image"
)

// DefaultFrameRate is used when the source does not report one.
const DefaultFrameRate = 30.0

// StreamInfo holds the source facts the pipeline depends on.
type StreamInfo struct {
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
}

// FrameReader yields decoded frames in presentation order. Next returns
// io.EOF after the last frame.
type FrameReader interface {
	Next() (*image.RGBA, error)
	Close() error
}

// FrameWriter accepts frames of the size it was opened with.
type FrameWriter interface {
	Write(frame *image.RGBA) error
	Close() error
}

// Transcoder is the media toolchain used by the redaction engine.
type Transcoder interface {
	Probe(ctx context.Context, path string) (StreamInfo, error)
	OpenReader(ctx context.Context, path string, info StreamInfo) (FrameReader, error)
	OpenWriter(ctx context.Context, path string, info StreamInfo) (FrameWriter, error)
	// Encode re-encodes the intermediate stream to H.264.
	Encode(ctx context.Context, src, dst string) error
	// Remux copies video from videoPath and audio from audioSource into dst.
	// A source without audio yields a silent output.
	Remux(ctx context.Context, videoPath, audioSource, dst string) error
}
