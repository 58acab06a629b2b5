package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	enqueueWait   = 5 * time.Second
	sendQueueSize = 100
)

// Conn wraps a websocket connection behind a single writer goroutine so
// WriteJSON is safe from any goroutine. A nil frame on the queue is the
// close sentinel: the writer flushes everything ahead of it, sends a close
// frame and tears the connection down.
type Conn struct {
	id        string
	conn      *websocket.Conn
	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	shutOnce  sync.Once
}

// NewConn wraps an upgraded websocket connection and starts its writer.
func NewConn(conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:      uuid.New().String(),
		conn:    conn,
		writeCh: make(chan []byte, sendQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	go c.writeLoop()
	return c
}

// ID returns the server-assigned connection identifier.
func (c *Conn) ID() string { return c.id }

func (c *Conn) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if data == nil {
				// Shutdown sentinel: everything queued before it has been
				// written; close politely and stop.
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				_ = c.Close()
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues a JSON frame for the client.
func (c *Conn) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(enqueueWait):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Shutdown queues one final frame followed by the close sentinel, letting
// the writer flush the notice before the connection dies.
func (c *Conn) Shutdown(v interface{}) {
	c.shutOnce.Do(func() {
		_ = c.WriteJSON(v)
		select {
		case c.writeCh <- nil:
		default:
			_ = c.Close()
		}
	})
}

// Close tears the connection down immediately.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}
