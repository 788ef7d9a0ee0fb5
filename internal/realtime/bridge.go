package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// envelope carries a hub message across instances. Origin identifies the
// publishing instance so it can skip its own echo.
type envelope struct {
	Origin      string          `json:"origin"`
	SessionCode string          `json:"session_code"`
	Raw         json.RawMessage `json:"raw"`
}

// Bridge relays hub messages through NATS so subscribers connected to other
// instances see the same fan-out. Delivery stays fire-and-forget end to end.
type Bridge struct {
	hub      *Hub
	nc       *nats.Conn
	sub      *nats.Subscription
	instance string
	logger   *slog.Logger
}

const bridgeSubject = "partyrush.session.broadcast"

// NewBridge connects to NATS and starts relaying remote messages into the
// local hub.
func NewBridge(hub *Hub, natsURL string, logger *slog.Logger) (*Bridge, error) {
	nc, err := nats.Connect(natsURL, nats.Name("partyrush-fanout"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	b := &Bridge{hub: hub, nc: nc, instance: uuid.NewString(), logger: logger}
	sub, err := nc.Subscribe(bridgeSubject, b.onRemote)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe nats: %w", err)
	}
	b.sub = sub
	return b, nil
}

// Publish delivers locally and republishes for other instances.
func (b *Bridge) Publish(sessionCode string, msg Message) {
	b.hub.Publish(sessionCode, msg)

	raw, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("bridge marshal error", "error", err, "type", msg.Type)
		return
	}
	data, err := json.Marshal(envelope{Origin: b.instance, SessionCode: sessionCode, Raw: raw})
	if err != nil {
		return
	}
	if err := b.nc.Publish(bridgeSubject, data); err != nil {
		b.logger.Warn("bridge publish failed", "error", err, "session", sessionCode)
	}
}

// onRemote feeds messages from other instances into the local hub.
func (b *Bridge) onRemote(m *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(m.Data, &env); err != nil {
		b.logger.Warn("bridge decode failed", "error", err)
		return
	}
	if env.Origin == b.instance {
		return
	}
	b.hub.deliver(env.SessionCode, env.Raw)
}

// Close drops the subscription and connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.nc.Close()
}
