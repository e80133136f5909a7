package surface

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/cctv/errors"
)

type reply struct {
	result interface{}
	err    *ProtocolError
	drop   bool
}

// devtools is a scripted DevTools endpoint.
type devtools struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]func(params json.RawMessage) reply
	calls    []string
	conn     *websocket.Conn
}

func newDevtools(t *testing.T) *devtools {
	d := &devtools{t: t, handlers: map[string]func(json.RawMessage) reply{}}
	d.handle("Target.getTargets", reply{result: map[string]interface{}{
		"targetInfos": []map[string]string{
			{"targetId": "bg", "type": "background_page"},
			{"targetId": "T1", "type": "page", "url": "about:blank"},
		},
	}})
	d.handle("Target.attachToTarget", reply{result: map[string]string{"sessionId": "S1"}})
	d.handle("Page.navigate", reply{result: map[string]string{"frameId": "F1"}})
	d.handle("Browser.getWindowForTarget", reply{result: map[string]interface{}{
		"windowId": 7,
		"bounds":   map[string]interface{}{"left": 0, "top": 0, "width": 800, "height": 600},
	}})
	d.handle("Browser.setWindowBounds", reply{result: map[string]string{}})
	d.handle("Runtime.evaluate", reply{result: map[string]interface{}{
		"result": map[string]interface{}{"type": "number", "value": 1.5},
	}})
	d.handle("Browser.getWindowBounds", reply{result: map[string]interface{}{
		"bounds": map[string]interface{}{"left": 10, "top": 20, "width": 1900, "height": 1000, "windowState": "maximized"},
	}})
	d.handle("Target.setDiscoverTargets", reply{result: map[string]string{}})
	d.handle("Browser.close", reply{drop: true})

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		ws := "ws://" + r.Host + "/devtools/browser/abc"
		json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": ws})
	})
	mux.HandleFunc("/devtools/browser/abc", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.conn = conn
		d.mu.Unlock()
		d.serve(conn)
	})
	d.server = httptest.NewServer(mux)
	t.Cleanup(d.server.Close)
	return d
}

func (d *devtools) handle(method string, r reply) {
	d.handleFunc(method, func(json.RawMessage) reply { return r })
}

func (d *devtools) handleFunc(method string, fn func(json.RawMessage) reply) {
	d.mu.Lock()
	d.handlers[method] = fn
	d.mu.Unlock()
}

func (d *devtools) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		d.mu.Lock()
		d.calls = append(d.calls, msg.Method)
		fn, ok := d.handlers[msg.Method]
		d.mu.Unlock()

		r := reply{err: &ProtocolError{Code: -32601, Message: "method not found"}}
		if ok {
			r = fn(msg.Params)
		}
		if r.drop {
			return
		}
		out := map[string]interface{}{"id": msg.ID}
		if r.err != nil {
			out["error"] = r.err
		} else {
			out["result"] = r.result
		}
		d.mu.Lock()
		err := conn.WriteJSON(out)
		d.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (d *devtools) emit(method string, params interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotNil(d.t, d.conn)
	require.NoError(d.t, d.conn.WriteJSON(map[string]interface{}{"method": method, "params": params}))
}

func (d *devtools) called(method string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.calls {
		if c == method {
			return true
		}
	}
	return false
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAttachAcquiresMaximizedPage(t *testing.T) {
	d := newDevtools(t)
	navigated := make(chan string, 1)
	d.handleFunc("Page.navigate", func(p json.RawMessage) reply {
		var v struct{ URL string }
		json.Unmarshal(p, &v)
		navigated <- v.URL
		return reply{result: map[string]string{"frameId": "F1"}}
	})
	state := make(chan string, 1)
	d.handleFunc("Browser.setWindowBounds", func(p json.RawMessage) reply {
		var v struct {
			Bounds map[string]interface{} `json:"bounds"`
		}
		json.Unmarshal(p, &v)
		ws, _ := v.Bounds["windowState"].(string)
		state <- ws
		return reply{result: map[string]string{}}
	})

	s, err := Attach(testCtx(t), d.server.URL, 4242, "https://camera.local/")
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, Handle{TargetID: "T1", WindowID: 7, PID: 4242}, s.Handle())
	assert.True(t, s.Handle().Valid())
	assert.Equal(t, 144.0, s.DPI())
	assert.Equal(t, "https://camera.local/", <-navigated)
	assert.Equal(t, "maximized", <-state)

	rect, err := s.WindowRect(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(15, 30, 2865, 1530), rect, "DIP bounds scaled by ratio 1.5")
}

func TestWindowRectScalesToDevicePixels(t *testing.T) {
	d := newDevtools(t)
	d.handle("Runtime.evaluate", reply{result: map[string]interface{}{
		"result": map[string]interface{}{"type": "number", "value": 2},
	}})
	d.handle("Browser.getWindowBounds", reply{result: map[string]interface{}{
		"bounds": map[string]interface{}{"left": 100, "top": 50, "width": 960, "height": 540, "windowState": "normal"},
	}})

	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, 192.0, s.DPI())
	rect, err := s.WindowRect(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(200, 100, 2120, 1180), rect)
}

func TestWindowRectUnknownRatioIsUnscaled(t *testing.T) {
	d := newDevtools(t)
	d.handle("Runtime.evaluate", reply{result: map[string]interface{}{
		"result": map[string]interface{}{"type": "undefined"},
	}})

	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()

	rect, err := s.WindowRect(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(10, 20, 1910, 1020), rect)
}

func TestWindowRectMinimizedHasNoArea(t *testing.T) {
	d := newDevtools(t)
	d.handle("Browser.getWindowBounds", reply{result: map[string]interface{}{
		"bounds": map[string]interface{}{"left": -32000, "top": -32000, "width": 160, "height": 28, "windowState": "minimized"},
	}})

	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()

	rect, err := s.WindowRect(testCtx(t))
	require.NoError(t, err)
	assert.True(t, rect.Empty())
}

func TestAttachDisconnectIsTransient(t *testing.T) {
	d := newDevtools(t)
	d.handle("Page.navigate", reply{drop: true})

	_, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err), "got %v", err)
}

func TestAttachProtocolErrorIsFatal(t *testing.T) {
	d := newDevtools(t)
	d.handle("Browser.getWindowForTarget", reply{err: &ProtocolError{Code: -32000, Message: "Browser window not found"}})

	_, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.Error(t, err)
	assert.False(t, errors.IsTransient(err))
	assert.Equal(t, errors.ErrCodeSurfaceProtocol, errors.GetCode(err))
	assert.Contains(t, err.Error(), "Browser window not found")
}

func TestAttachCreatesPageWhenNoneExists(t *testing.T) {
	d := newDevtools(t)
	d.handle("Target.getTargets", reply{result: map[string]interface{}{"targetInfos": []interface{}{}}})
	d.handle("Target.createTarget", reply{result: map[string]string{"targetId": "NEW"}})

	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()
	assert.Equal(t, "NEW", s.Handle().TargetID)
}

func TestSubscribeCloseFiresOnTargetDestroyed(t *testing.T) {
	d := newDevtools(t)
	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()

	closed := make(chan struct{})
	var once sync.Once
	require.NoError(t, s.SubscribeClose(testCtx(t), func() { once.Do(func() { close(closed) }) }))
	assert.True(t, d.called("Target.setDiscoverTargets"))

	d.emit("Target.targetDestroyed", map[string]string{"targetId": "other"})
	select {
	case <-closed:
		t.Fatal("unrelated target must not close the surface")
	case <-time.After(100 * time.Millisecond):
	}

	d.emit("Target.targetDestroyed", map[string]string{"targetId": "T1"})
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close notification not delivered")
	}
}

func TestSubscribeCloseFailureIsWiringError(t *testing.T) {
	d := newDevtools(t)
	d.handle("Target.setDiscoverTargets", reply{err: &ProtocolError{Code: -32000, Message: "not allowed"}})

	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()

	err = s.SubscribeClose(testCtx(t), func() {})
	assert.Equal(t, errors.ErrCodeWiringFailed, errors.GetCode(err))
}

func TestHandleInvalidAfterConnectionDrops(t *testing.T) {
	d := newDevtools(t)
	s, err := Attach(testCtx(t), d.server.URL, 1, "about:blank")
	require.NoError(t, err)
	defer s.Release()

	closed := make(chan struct{})
	var once sync.Once
	require.NoError(t, s.SubscribeClose(testCtx(t), func() { once.Do(func() { close(closed) }) }))

	require.NoError(t, s.Close(testCtx(t)), "a browser that hangs up on close is not an error")

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection loss not reported")
	}
	assert.Eventually(t, func() bool { return !s.Handle().Valid() }, time.Second, 10*time.Millisecond)

	_, err = s.WindowRect(testCtx(t))
	assert.Equal(t, errors.ErrCodeSurfaceClosed, errors.GetCode(err))
}

func TestLauncherMissingBinaryIsFatal(t *testing.T) {
	l := NewLauncher(LaunchConfig{Binary: "definitely-not-a-browser-binary"})
	_, err := l.Acquire(testCtx(t), "about:blank")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSurfaceLaunchFailed, errors.GetCode(err))
	assert.False(t, errors.IsTransient(err))
}

func TestLauncherBrowserExitsEarly(t *testing.T) {
	l := NewLauncher(LaunchConfig{Binary: "true", DebugPort: 1, StartupTimeout: 3 * time.Second})
	_, err := l.Acquire(testCtx(t), "about:blank")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSurfaceLaunchFailed, errors.GetCode(err))
	assert.True(t, strings.Contains(err.Error(), "exited"), err.Error())
}
