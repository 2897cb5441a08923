// Package ws bridges a host that streams notifications over a WebSocket.
// Every text frame carries one notification in the POST /notifications
// shape and is answered with one ack frame, in order.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/footsteps/internal/adapters/http/api"
	"github.com/okian/footsteps/pkg/logger"
	"github.com/okian/footsteps/pkg/metrics"
)

// Connection tuning constants.
const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameBytes  = 1 << 20
	sendBufferSize = 64
)

// frame is the ack written back for every received frame.
type frame struct {
	ID        string `json:"id,omitempty"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Error     string `json:"error,omitempty"`
}

// Handler upgrades host connections and feeds their frames to a Submitter.
type Handler struct {
	deps     api.Submitter
	upgrader websocket.Upgrader
	open     atomic.Int64
	logger   logger.Logger
}

// NewHandler creates a bridge handler with configuration options.
func NewHandler(deps api.Submitter, opts ...Option) *Handler {
	h := &Handler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.Get().Named("ws"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Connections returns the number of open host connections.
func (h *Handler) Connections() int64 {
	return h.open.Load()
}

// Register attaches the bridge to mux at /ws.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.Handle)
}

// Handle upgrades the request and serves the connection until it closes.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}

	metrics.UpdateWSConnections(int(h.open.Add(1)))
	h.logger.Info(r.Context(), "host connected", logger.String("remote", r.RemoteAddr))

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize), done: make(chan struct{})}
	go c.writePump()

	ctx := context.WithoutCancel(r.Context())
	h.readPump(ctx, c)

	metrics.UpdateWSConnections(int(h.open.Add(-1)))
	h.logger.Info(ctx, "host disconnected", logger.String("remote", r.RemoteAddr))
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{} // closed when the write pump exits
}

// readPump decodes frames until the connection fails or the write pump
// gives up. It owns c.send and closes it on return, which ends the write
// pump.
func (h *Handler) readPump(ctx context.Context, c *client) {
	defer close(c.send)

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn(ctx, "host connection dropped", logger.Error(err))
			}
			return
		}

		ack := h.handleFrame(ctx, payload)
		data, err := json.Marshal(ack)
		if err != nil {
			h.logger.Error(ctx, "ack marshal failed", logger.Error(err))
			continue
		}
		// Acks are never dropped: a full buffer blocks reads, which pushes
		// back on the host, until the writer is gone.
		select {
		case c.send <- data:
		case <-c.done:
			h.logger.Warn(ctx, "host stopped reading acks")
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, payload []byte) frame {
	n, err := api.DecodeNotification(bytes.NewReader(payload))
	if err != nil {
		metrics.RecordErrorByComponent("ws", "bad_frame")
		return frame{Status: "error", Error: err.Error()}
	}
	ack := api.Ack(n.ID, h.deps.Submit(ctx, n))
	return frame{ID: ack.ID, Status: ack.Status, Duplicate: ack.Duplicate}
}

// writePump writes queued acks and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
