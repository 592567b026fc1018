package transcode

import (
	"fmt"
	"image"
)

// RGB24ToRGBA converts a packed rgb24 buffer into dst, which must be w×h.
func RGB24ToRGBA(buf []byte, dst *image.RGBA) error {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	if len(buf) != w*h*3 {
		return fmt.Errorf("rgb24 buffer is %d bytes, want %d", len(buf), w*h*3)
	}
	for y := 0; y < h; y++ {
		src := buf[y*w*3 : (y+1)*w*3]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			row[x*4] = src[x*3]
			row[x*4+1] = src[x*3+1]
			row[x*4+2] = src[x*3+2]
			row[x*4+3] = 0xff
		}
	}
	return nil
}

// RGBAToRGB24 packs frame into buf, which must hold w×h×3 bytes.
func RGBAToRGB24(frame *image.RGBA, buf []byte) error {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	if len(buf) != w*h*3 {
		return fmt.Errorf("rgb24 buffer is %d bytes, want %d", len(buf), w*h*3)
	}
	for y := 0; y < h; y++ {
		row := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		dst := buf[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			dst[x*3] = row[x*4]
			dst[x*3+1] = row[x*4+1]
			dst[x*3+2] = row[x*4+2]
		}
	}
	return nil
}
