package websocket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DevaOnL/Chat-app-sub000/internal/identity"
	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Dispatcher is the slice of the hub the handler needs.
type Dispatcher interface {
	Attach(ctx context.Context, conn interfaces.Connection, id types.Identity) error
	Detach(ctx context.Context, connectionID string)
	HandleEvent(ctx context.Context, connectionID string, frame []byte)
}

// Handler upgrades HTTP requests into registered chat connections.
type Handler struct {
	dispatcher Dispatcher
}

// NewHandler creates a websocket handler backed by the dispatcher.
func NewHandler(dispatcher Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// HandleWebSocket validates the handshake, upgrades the connection and
// runs its read loop. A malformed handshake is refused before the upgrade:
// the client gets an HTTP error and no socket event is ever emitted.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := identity.Bind(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := NewConn(ws)
	ctx := context.Background()
	if err := h.dispatcher.Attach(ctx, conn, id); err != nil {
		log.Printf("attach failed: email=%s err=%v", id.Email, err)
		_ = conn.Close()
		return
	}

	go h.readLoop(ctx, conn, ws)
}

// readLoop consumes inbound frames until the peer goes away, then unwinds
// through the ordinary detach path.
func (h *Handler) readLoop(ctx context.Context, conn *Conn, ws *websocket.Conn) {
	defer func() {
		h.dispatcher.Detach(ctx, conn.ID())
		_ = conn.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(conn, ws)

	for {
		messageType, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: conn=%s err=%v", conn.ID(), err)
			}
			return
		}
		if messageType == websocket.TextMessage {
			h.dispatcher.HandleEvent(ctx, conn.ID(), frame)
		}
	}
}

func (h *Handler) pingLoop(conn *Conn, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Printf("ping failed: conn=%s err=%v", conn.ID(), err)
				}
				return
			}
		case <-conn.ctx.Done():
			return
		}
	}
}
