package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/partyrush/backend/internal/game"
	"github.com/partyrush/backend/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024

	// closeUnknownSession tells the client the join code does not exist.
	closeUnknownSession = 4001
)

// WSHandler upgrades party screens and player devices onto the session
// broadcast stream.
type WSHandler struct {
	upgrader websocket.Upgrader
	svc      *game.Service
	hub      *realtime.Hub
	logger   *slog.Logger
}

// NewWSHandler creates a WebSocket handler.
func NewWSHandler(svc *game.Service, hub *realtime.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		svc:    svc,
		hub:    hub,
		logger: logger,
	}
}

// Serve handles GET /ws/sessions/{code}. An unknown code gets close code
// 4001 after the upgrade so browser clients can distinguish it from a
// network failure.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	token := r.URL.Query().Get("token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	snapshot, err := h.svc.Snapshot(r.Context(), code)
	if err != nil {
		msg := websocket.FormatCloseMessage(closeUnknownSession, "unknown session code")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	sub := &realtime.Subscriber{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 64),
	}

	// The snapshot is queued before Join so no broadcast can overtake it.
	for _, m := range snapshot {
		payload, err := json.Marshal(m)
		if err != nil {
			h.logger.Error("snapshot marshal error", "error", err)
			continue
		}
		sub.Send <- payload
	}
	h.hub.Join(code, sub)

	if token != "" {
		h.svc.TouchPresence(context.WithoutCancel(r.Context()), token, true)
	}
	h.logger.Info("websocket subscriber joined", "code", code, "subscriber", sub.ID)

	go h.writePump(conn, sub)
	go h.readPump(conn, sub, code, token)
}

// readPump consumes client frames until the connection drops. Clients send
// {"type":"ping"} keepalives; each one refreshes the player's presence row.
func (h *WSHandler) readPump(conn *websocket.Conn, sub *realtime.Subscriber, code, token string) {
	defer func() {
		h.hub.Leave(code, sub.ID)
		conn.Close()
		if token != "" {
			h.svc.TouchPresence(context.Background(), token, false)
		}
		h.logger.Info("websocket subscriber left", "code", code, "subscriber", sub.ID)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "subscriber", sub.ID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if token != "" {
				h.svc.TouchPresence(context.Background(), token, true)
			}
			select {
			case sub.Send <- []byte(`{"type":"pong"}`):
			default:
			}
		}
	}
}

// writePump drains the subscriber buffer onto the socket and keeps the
// connection alive with protocol pings.
func (h *WSHandler) writePump(conn *websocket.Conn, sub *realtime.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
