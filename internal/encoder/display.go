package encoder

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/kbinani/screenshot"

	"github.com/grovetools/cctv/errors"
)

// Display is a source of screen pixels in virtual-screen coordinates.
type Display interface {
	// Bounds is the union of all active monitors.
	Bounds() image.Rectangle
	// CopyRect copies src from the screen into dst at dst's origin.
	CopyRect(dst *image.RGBA, src image.Rectangle) error
}

// ScreenDisplay reads pixels from the X server.
type ScreenDisplay struct {
	bounds image.Rectangle
}

// NewScreenDisplay measures the virtual screen once.
func NewScreenDisplay() (*ScreenDisplay, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, errors.New(errors.ErrCodeDisplayUnavailable, "no active displays")
	}

	var bounds image.Rectangle
	for i := 0; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	if bounds.Empty() {
		return nil, errors.New(errors.ErrCodeDisplayUnavailable, "virtual screen has no area")
	}
	return &ScreenDisplay{bounds: bounds}, nil
}

func (d *ScreenDisplay) Bounds() image.Rectangle {
	return d.bounds
}

func (d *ScreenDisplay) CopyRect(dst *image.RGBA, src image.Rectangle) error {
	img, err := screenshot.CaptureRect(src)
	if err != nil {
		return fmt.Errorf("capture %v: %w", src, err)
	}
	draw.Draw(dst, image.Rectangle{Max: src.Size()}, img, img.Bounds().Min, draw.Src)
	return nil
}
