package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := newTestHub()

	a := &Subscriber{ID: "a", Send: make(chan []byte, 4)}
	b := &Subscriber{ID: "b", Send: make(chan []byte, 4)}
	hub.Join("AB12CD", a)
	hub.Join("AB12CD", b)

	hub.Publish("AB12CD", Message{Type: KindPlayerUpdate, Payload: map[string]string{"name": "alice"}})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case raw := <-sub.Send:
			var msg Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, KindPlayerUpdate, msg.Type)
		default:
			t.Fatalf("subscriber %s received nothing", sub.ID)
		}
	}
}

func TestPublishScopedToSession(t *testing.T) {
	hub := newTestHub()

	other := &Subscriber{ID: "other", Send: make(chan []byte, 4)}
	hub.Join("ZZ99ZZ", other)

	hub.Publish("AB12CD", Message{Type: KindSessionState})
	assert.Empty(t, other.Send)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := newTestHub()

	slow := &Subscriber{ID: "slow", Send: make(chan []byte, 1)}
	hub.Join("AB12CD", slow)

	hub.Publish("AB12CD", Message{Type: KindSessionState})
	hub.Publish("AB12CD", Message{Type: KindPlayersList}) // buffer full, dropped

	assert.Len(t, slow.Send, 1)
	var msg Message
	require.NoError(t, json.Unmarshal(<-slow.Send, &msg))
	assert.Equal(t, KindSessionState, msg.Type, "first message survives, later ones drop")
}

func TestLeaveRemovesSubscriber(t *testing.T) {
	hub := newTestHub()

	sub := &Subscriber{ID: "a", Send: make(chan []byte, 4)}
	hub.Join("AB12CD", sub)
	assert.Equal(t, 1, hub.SubscriberCount("AB12CD"))

	hub.Leave("AB12CD", "a")
	assert.Equal(t, 0, hub.SubscriberCount("AB12CD"))

	hub.Publish("AB12CD", Message{Type: KindSessionState})
	assert.Empty(t, sub.Send)
}

func TestShutdownClosesChannels(t *testing.T) {
	hub := newTestHub()

	sub := &Subscriber{ID: "a", Send: make(chan []byte, 4)}
	hub.Join("AB12CD", sub)

	hub.Shutdown(context.Background())

	_, open := <-sub.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount("AB12CD"))
}
