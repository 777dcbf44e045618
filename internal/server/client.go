package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/boardlyhq/boardly/backend/internal/board"
)

const clientSendBuffer = 256

// wireFrame is the JSON envelope for every websocket message in both
// directions.
type wireFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client adapts one websocket connection to the board.Sender contract.
// Outbound events are queued on a buffered channel drained by WritePump, so
// a room broadcast never blocks on a slow connection; when the buffer is
// full the event is dropped and the client reconciles via request-canvas.
type Client struct {
	conn *websocket.Conn

	mu   sync.Mutex
	hook func(board.Event)

	send      chan board.Event
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan board.Event, clientSendBuffer),
		done: make(chan struct{}),
	}
}

// SetDeliverHook replaces the websocket queue with a capture function (used
// in tests).
func (c *Client) SetDeliverHook(fn func(board.Event)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Deliver implements board.Sender.
func (c *Client) Deliver(event board.Event) {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(event)
		return
	}
	select {
	case c.send <- event:
	case <-c.done:
	default:
	}
}

// WritePump drains queued events onto the websocket until the client closes.
// It must run in its own goroutine, one per connection.
func (c *Client) WritePump() {
	for {
		select {
		case event := <-c.send:
			if c.conn == nil {
				continue
			}
			if err := c.conn.WriteJSON(wireFrame{Event: event.Name, Data: event.Data}); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close releases the pump and the underlying connection. Safe to call more
// than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
