package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu        sync.Mutex
	published []string
	handlers  map[uuid.UUID]func(string, []byte)
	cancelled int
	pubErr    error
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: map[uuid.UUID]func(string, []byte){}}
}

func (b *fakeBus) PublishEventMessage(eventID uuid.UUID, event string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubErr != nil {
		return b.pubErr
	}
	b.published = append(b.published, event)
	if h, ok := b.handlers[eventID]; ok {
		h(event, payload)
	}
	return nil
}

func (b *fakeBus) SubscribeEvent(eventID uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.handlers[eventID] = handler
	return func() {
		delete(b.handlers, eventID)
		b.cancelled++
	}, nil
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatal("no message queued")
		return WSMessage{}
	}
}

func TestHub_NotifyWithoutRedisBroadcastsLocally(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	watching := NewClient(hub, nil, eventID, uuid.New(), nil)
	other := NewClient(hub, nil, uuid.New(), uuid.New(), nil)
	hub.Register(watching)
	hub.Register(other)

	hub.Notify(eventID, EventDispatchProgress, map[string]int{"done": 1, "total": 3})

	msg := receive(t, watching)
	assert.Equal(t, EventDispatchProgress, msg.Event)
	var data map[string]int
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, 1, data["done"])
	assert.Empty(t, other.send)
}

func TestHub_NotifyGoesThroughRedisOnce(t *testing.T) {
	bus := newFakeBus()
	hub := NewHub(nil, bus, bus)
	eventID := uuid.New()
	c := NewClient(hub, nil, eventID, uuid.New(), nil)
	hub.Register(c)

	hub.Notify(eventID, EventDispatchCompleted, map[string]string{"run_id": "r1"})

	assert.Equal(t, []string{EventDispatchCompleted}, bus.published)
	msg := receive(t, c)
	assert.Equal(t, EventDispatchCompleted, msg.Event)
	assert.JSONEq(t, `{"run_id":"r1"}`, string(msg.Data))
	assert.Empty(t, c.send)
}

func TestHub_NotifyFallsBackWhenPublishFails(t *testing.T) {
	bus := newFakeBus()
	bus.pubErr = errors.New("redis down")
	hub := NewHub(nil, bus, bus)
	eventID := uuid.New()
	c := NewClient(hub, nil, eventID, uuid.New(), nil)
	hub.Register(c)

	hub.Notify(eventID, EventDispatchFailed, map[string]string{"error": "x"})

	assert.Equal(t, EventDispatchFailed, receive(t, c).Event)
}

func TestHub_UnregisterCancelsSubscriptionWithLastClient(t *testing.T) {
	bus := newFakeBus()
	hub := NewHub(nil, bus, bus)
	eventID := uuid.New()
	a := NewClient(hub, nil, eventID, uuid.New(), nil)
	b := NewClient(hub, nil, eventID, uuid.New(), nil)
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.Watchers(eventID))

	hub.Unregister(a)
	assert.Equal(t, 0, bus.cancelled)
	hub.Unregister(b)
	hub.Unregister(b)
	assert.Equal(t, 1, bus.cancelled)
	assert.Equal(t, 0, hub.Watchers(eventID))

	_, open := <-a.send
	assert.False(t, open)
}

func TestChannelName(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	assert.Equal(t, "invites:event:7c9e6679-7425-40de-944b-e07fc1f90ae7", ChannelName(id))
}
