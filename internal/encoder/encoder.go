// Package encoder turns screen regions into JPEG frames through a single
// long-lived framebuffer.
package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"github.com/grovetools/cctv/errors"
)

// BaseDPI is the density assumed when none is known.
const BaseDPI = 96.0

// Encoder owns the framebuffer. It is not safe for concurrent use; the
// capture loop is its only caller.
type Encoder struct {
	display Display
	fb      *image.RGBA
	buf     bytes.Buffer
	opts    jpeg.Options
}

// New sizes the framebuffer to the display and fixes the quality from dpi.
func New(display Display, dpi float64) (*Encoder, error) {
	size := display.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.New(errors.ErrCodeDisplayUnavailable, "display has no area").
			WithDetail("bounds", display.Bounds().String())
	}
	return &Encoder{
		display: display,
		fb:      image.NewRGBA(image.Rect(0, 0, size.X, size.Y)),
		opts:    jpeg.Options{Quality: QualityForDPI(dpi)},
	}, nil
}

// QualityForDPI maps display density to JPEG quality: 96 dpi gives 10, and
// denser displays trade quality for size. Never below 1.
func QualityForDPI(dpi float64) int {
	if dpi <= 0 {
		dpi = BaseDPI
	}
	q := int(math.Round(960 / dpi))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// Quality is the JPEG quality used for every frame.
func (e *Encoder) Quality() int {
	return e.opts.Quality
}

// Bounds is the virtual screen the framebuffer covers.
func (e *Encoder) Bounds() image.Rectangle {
	return e.display.Bounds()
}

// Clear paints the framebuffer black.
func (e *Encoder) Clear() {
	draw.Draw(e.fb, e.fb.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
}

// Capture copies region into the framebuffer and returns it as JPEG. The
// returned slice is reused by the next call.
func (e *Encoder) Capture(region image.Rectangle) ([]byte, error) {
	w, h := region.Dx(), region.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.CaptureFailed("empty region", nil).
			WithDetail("region", region.String())
	}

	fbSize := e.fb.Bounds().Size()
	if w > fbSize.X {
		w = fbSize.X
	}
	if h > fbSize.Y {
		h = fbSize.Y
	}
	src := image.Rect(region.Min.X, region.Min.Y, region.Min.X+w, region.Min.Y+h)

	if err := e.display.CopyRect(e.fb, src); err != nil {
		return nil, errors.CaptureFailed("pixel copy", err).
			WithDetail("region", src.String())
	}

	e.buf.Reset()
	frame := e.fb.SubImage(image.Rect(0, 0, w, h))
	if err := jpeg.Encode(&e.buf, frame, &e.opts); err != nil {
		return nil, errors.CaptureFailed("jpeg encode", err)
	}
	return e.buf.Bytes(), nil
}
