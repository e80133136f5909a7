// Package surface drives a Chromium-family browser over the DevTools
// protocol: it launches the browser, opens the configured page maximized,
// and exposes the window geometry and lifetime the capture loop depends on.
package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/errors"
)

// Handle identifies the controlled window. The zero Handle is invalid.
type Handle struct {
	TargetID string
	WindowID int
	PID      int
}

// Valid reports whether the handle still refers to a live surface.
func (h Handle) Valid() bool {
	return h.TargetID != "" && h.PID > 0
}

// Surface is an acquired browser window.
type Surface struct {
	conn      *Conn
	sessionID string
	log       *logrus.Entry

	mu     sync.Mutex
	handle Handle
	ratio  float64
	dpi    float64

	release     func()
	releaseOnce sync.Once
}

type bounds struct {
	Left        int    `json:"left"`
	Top         int    `json:"top"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	WindowState string `json:"windowState,omitempty"`
}

type targetInfo struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

// open finishes acquisition on an established connection: it attaches to the
// first page target, navigates it, maximizes its window and reads the pixel
// ratio. On error the caller owns conn.
func open(ctx context.Context, conn *Conn, pid int, url string, log *logrus.Entry) (*Surface, error) {
	var targets struct {
		TargetInfos []targetInfo `json:"targetInfos"`
	}
	if err := conn.Call(ctx, "", "Target.getTargets", nil, &targets); err != nil {
		return nil, classify("target discovery", err)
	}

	targetID := ""
	for _, t := range targets.TargetInfos {
		if t.Type == "page" {
			targetID = t.TargetID
			break
		}
	}
	if targetID == "" {
		var created struct {
			TargetID string `json:"targetId"`
		}
		if err := conn.Call(ctx, "", "Target.createTarget", map[string]interface{}{"url": "about:blank"}, &created); err != nil {
			return nil, classify("target creation", err)
		}
		targetID = created.TargetID
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	err := conn.Call(ctx, "", "Target.attachToTarget", map[string]interface{}{
		"targetId": targetID,
		"flatten":  true,
	}, &attached)
	if err != nil {
		return nil, classify("attach", err)
	}

	var nav struct {
		ErrorText string `json:"errorText"`
	}
	if err := conn.Call(ctx, attached.SessionID, "Page.navigate", map[string]interface{}{"url": url}, &nav); err != nil {
		return nil, classify("navigate", err)
	}
	if nav.ErrorText != "" {
		log.WithField("url", url).WithField("reason", nav.ErrorText).Warn("Page failed to load, capturing anyway")
	}

	var win struct {
		WindowID int    `json:"windowId"`
		Bounds   bounds `json:"bounds"`
	}
	if err := conn.Call(ctx, "", "Browser.getWindowForTarget", map[string]interface{}{"targetId": targetID}, &win); err != nil {
		return nil, classify("window lookup", err)
	}

	err = conn.Call(ctx, "", "Browser.setWindowBounds", map[string]interface{}{
		"windowId": win.WindowID,
		"bounds":   map[string]string{"windowState": "maximized"},
	}, nil)
	if err != nil {
		return nil, classify("maximize", err)
	}

	var eval struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
	}
	err = conn.Call(ctx, attached.SessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    "window.devicePixelRatio",
		"returnByValue": true,
	}, &eval)
	if err != nil {
		return nil, classify("pixel ratio", err)
	}
	var ratio float64
	if err := json.Unmarshal(eval.Result.Value, &ratio); err != nil || ratio <= 0 {
		ratio = 1
	}

	s := &Surface{
		conn:      conn,
		sessionID: attached.SessionID,
		log:       log,
		handle:    Handle{TargetID: targetID, WindowID: win.WindowID, PID: pid},
		ratio:     ratio,
		dpi:       ratio * 96,
	}
	go func() {
		<-conn.Closed()
		s.invalidate()
	}()
	return s, nil
}

// Handle returns the window handle, or the zero Handle once the surface is gone.
func (s *Surface) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// DPI is the display density reported by the page.
func (s *Surface) DPI() float64 {
	return s.dpi
}

func (s *Surface) invalidate() {
	s.mu.Lock()
	s.handle = Handle{}
	s.mu.Unlock()
}

// WindowRect returns the window's screen rectangle in device pixels. The
// browser reports bounds in DIPs, so they are scaled by the pixel ratio.
// A minimized window has no area.
func (s *Surface) WindowRect(ctx context.Context) (image.Rectangle, error) {
	h := s.Handle()
	if !h.Valid() {
		return image.Rectangle{}, errors.New(errors.ErrCodeSurfaceClosed, "surface is closed")
	}

	var res struct {
		Bounds bounds `json:"bounds"`
	}
	if err := s.conn.Call(ctx, "", "Browser.getWindowBounds", map[string]interface{}{"windowId": h.WindowID}, &res); err != nil {
		return image.Rectangle{}, errors.Wrap(err, errors.ErrCodeSurfaceClosed, "window bounds unavailable")
	}
	b := res.Bounds
	if b.WindowState == "minimized" {
		return image.Rectangle{}, nil
	}
	return image.Rect(
		s.scale(b.Left), s.scale(b.Top),
		s.scale(b.Left+b.Width), s.scale(b.Top+b.Height),
	), nil
}

func (s *Surface) scale(v int) int {
	return int(math.Round(float64(v) * s.ratio))
}

// SubscribeClose arranges for onClose to run when the page target is
// destroyed or the connection drops. onClose may run more than once.
func (s *Surface) SubscribeClose(ctx context.Context, onClose func()) error {
	targetID := s.Handle().TargetID
	if targetID == "" {
		return errors.New(errors.ErrCodeWiringFailed, "surface is closed")
	}

	s.conn.On("Target.targetDestroyed", func(_ string, params json.RawMessage) {
		var ev struct {
			TargetID string `json:"targetId"`
		}
		if json.Unmarshal(params, &ev) == nil && ev.TargetID == targetID {
			s.log.WithField("target", targetID).Debug("Target destroyed")
			onClose()
		}
	})

	if err := s.conn.Call(ctx, "", "Target.setDiscoverTargets", map[string]interface{}{"discover": true}, nil); err != nil {
		return errors.Wrap(err, errors.ErrCodeWiringFailed, "subscribe to target lifecycle")
	}

	go func() {
		<-s.conn.Closed()
		onClose()
	}()
	return nil
}

// Close asks the browser to shut down.
func (s *Surface) Close(ctx context.Context) error {
	if err := s.conn.Call(ctx, "", "Browser.close", nil, nil); err != nil {
		if isDisconnect(err) {
			return nil
		}
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Release drops the connection and any launch resources.
func (s *Surface) Release() error {
	err := s.conn.Close()
	s.invalidate()
	if s.release != nil {
		s.releaseOnce.Do(s.release)
	}
	return err
}
