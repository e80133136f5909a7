package scheduler

import (
	"context"
	"image"

	"github.com/grovetools/cctv/internal/session"
)

// RegionSource resolves the screen rectangle to capture on each iteration.
type RegionSource interface {
	Region(ctx context.Context) (image.Rectangle, error)
	Strategy() session.Strategy
}

// WindowGeometry reports the current screen rectangle of a window.
type WindowGeometry interface {
	WindowRect(ctx context.Context) (image.Rectangle, error)
}

// WindowRegion follows the surface window wherever it is on screen.
type WindowRegion struct {
	Window WindowGeometry
}

func (w WindowRegion) Region(ctx context.Context) (image.Rectangle, error) {
	return w.Window.WindowRect(ctx)
}

func (WindowRegion) Strategy() session.Strategy { return session.StrategyWindow }

// ScreenRegion always captures the whole virtual screen.
type ScreenRegion struct {
	Bounds image.Rectangle
}

func (s ScreenRegion) Region(context.Context) (image.Rectangle, error) {
	return s.Bounds, nil
}

func (ScreenRegion) Strategy() session.Strategy { return session.StrategyScreen }
