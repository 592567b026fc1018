package detect

import (
	"context"
	"image"
)

// Box is an axis-aligned region in pixel coordinates, x2/y2 exclusive.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is one object found in a frame.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"-"`
}

// Detector finds objects in a single frame. Implementations must return only
// detections whose confidence is at least threshold, but callers filter again.
type Detector interface {
	Detect(ctx context.Context, variant Variant, frame image.Image, threshold float64) ([]Detection, error)
}

// Func adapts a function to the Detector interface.
type Func func(ctx context.Context, variant Variant, frame image.Image, threshold float64) ([]Detection, error)

// Detect implements Detector.
func (f Func) Detect(ctx context.Context, variant Variant, frame image.Image, threshold float64) ([]Detection, error) {
	return f(ctx, variant, frame, threshold)
}
