package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ProtocolError is an error object returned by the DevTools endpoint.
type ProtocolError struct {
	Method  string `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("%s: %s (%d): %s", e.Method, e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Method, e.Message, e.Code)
}

// ErrConnClosed is returned by calls made on, or pending across, a closed connection.
var ErrConnClosed = fmt.Errorf("devtools connection closed")

type message struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ProtocolError  `json:"error,omitempty"`
}

// EventHandler receives the raw params of a protocol event.
type EventHandler func(sessionID string, params json.RawMessage)

// Conn is a DevTools protocol client over one browser-level WebSocket.
// Calls may be issued from any goroutine.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	nextID  atomic.Int64

	mu       sync.Mutex
	pending  map[int64]chan *message
	handlers map[string][]EventHandler

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to a webSocketDebuggerUrl and starts reading.
func Dial(ctx context.Context, wsURL string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Conn{
		ws:       ws,
		pending:  make(map[int64]chan *message),
		handlers: make(map[string][]EventHandler),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call sends method on the browser session (sessionID "") or on an attached
// target session, and decodes the result into result when non-nil.
func (c *Conn) Call(ctx context.Context, sessionID, method string, params, result interface{}) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		raw = b
	}

	id := c.nextID.Add(1)
	reply := make(chan *message, 1)

	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		return c.Err()
	default:
	}
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.ws.WriteJSON(&message{ID: id, SessionID: sessionID, Method: method, Params: raw})
	c.writeMu.Unlock()
	if err != nil {
		c.shutdown(err)
		return c.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return c.Err()
	case msg := <-reply:
		if msg.Error != nil {
			msg.Error.Method = method
			return msg.Error
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// On registers fn for every future event named method.
func (c *Conn) On(method string, fn EventHandler) {
	c.mu.Lock()
	c.handlers[method] = append(c.handlers[method], fn)
	c.mu.Unlock()
}

// Closed is closed when the connection ends for any reason.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// Err reports why the connection ended, wrapping ErrConnClosed.
func (c *Conn) Err() error {
	select {
	case <-c.closed:
	default:
		return nil
	}
	if c.closeErr == nil {
		return ErrConnClosed
	}
	return fmt.Errorf("%w: %w", ErrConnClosed, c.closeErr)
}

// Close ends the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		c.ws.Close()
	})
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.ID != 0 {
			c.mu.Lock()
			reply, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				reply <- &msg
			}
			continue
		}

		c.mu.Lock()
		handlers := append([]EventHandler(nil), c.handlers[msg.Method]...)
		c.mu.Unlock()
		for _, h := range handlers {
			h(msg.SessionID, msg.Params)
		}
	}
}
