package redact

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
)

// StrengthStep is subtracted from the block count each time a region is too
// small for the requested strength.
const StrengthStep = 5

var (
	// ErrDegenerateBox means the clipped box has zero width or height.
	ErrDegenerateBox = errors.New("degenerate redaction region")
	// ErrStrengthExhausted means no positive strength fit the region.
	ErrStrengthExhausted = errors.New("mosaic strength exhausted")
)

// Mosaic pixelates box in img in place: the region is reduced to a
// strength×strength grid of block averages and scaled back up with
// nearest-neighbour sampling. When the region is narrower or shorter than
// strength, strength is lowered by StrengthStep until it fits; at zero the
// region is left untouched and ErrStrengthExhausted is returned. It returns
// the strength actually applied.
//
// Applying Mosaic twice with the same box and strength leaves the pixels of
// the first pass unchanged.
func Mosaic(img *image.RGBA, box image.Rectangle, strength int) (int, error) {
	region := box.Canon().Intersect(img.Bounds())
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return 0, ErrDegenerateBox
	}

	for ; strength > 0; strength -= StrengthStep {
		small, ok := downscale(img, region, strength)
		if !ok {
			continue
		}
		draw.NearestNeighbor.Scale(img, region, small, small.Bounds(), draw.Src, nil)
		return strength, nil
	}
	return 0, ErrStrengthExhausted
}

// downscale averages region into an n×n image. Pixel x of the region falls in
// block (2x+1)·n / 2w, the same cell draw.NearestNeighbor samples when
// scaling back up, so a region that is already a block grid reproduces
// itself exactly.
func downscale(img *image.RGBA, region image.Rectangle, n int) (*image.RGBA, bool) {
	w, h := region.Dx(), region.Dy()
	if n <= 0 || n > w || n > h {
		return nil, false
	}

	type acc struct{ r, g, b, a, count uint64 }
	cells := make([]acc, n*n)
	for y := 0; y < h; y++ {
		by := ((2*y + 1) * n) / (2 * h)
		row := img.Pix[img.PixOffset(region.Min.X, region.Min.Y+y):]
		for x := 0; x < w; x++ {
			bx := ((2*x + 1) * n) / (2 * w)
			c := &cells[by*n+bx]
			p := row[x*4 : x*4+4]
			c.r += uint64(p[0])
			c.g += uint64(p[1])
			c.b += uint64(p[2])
			c.a += uint64(p[3])
			c.count++
		}
	}

	small := image.NewRGBA(image.Rect(0, 0, n, n))
	for i, c := range cells {
		if c.count == 0 {
			return nil, false
		}
		half := c.count / 2
		small.Pix[i*4] = uint8((c.r + half) / c.count)
		small.Pix[i*4+1] = uint8((c.g + half) / c.count)
		small.Pix[i*4+2] = uint8((c.b + half) / c.count)
		small.Pix[i*4+3] = uint8((c.a + half) / c.count)
	}
	return small, true
}
