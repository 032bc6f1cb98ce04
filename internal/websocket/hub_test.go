package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		Hub:           hub,
		UserID:        userID,
		Send:          make(chan []byte, 16),
		LastResetTime: time.Now(),
	}
}

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-c.Send:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_PublishOutfitEventReachesEverySession(t *testing.T) {
	hub := startHub(t)
	phone := newTestClient(hub, "user-1")
	tablet := newTestClient(hub, "user-1")
	other := newTestClient(hub, "user-2")
	hub.Register(phone)
	hub.Register(tablet)
	hub.Register(other)

	require.Eventually(t, func() bool {
		return hub.SessionCount("user-1") == 2 && hub.IsUserOnline("user-2")
	}, time.Second, 10*time.Millisecond)

	hub.PublishOutfitEvent("user-1", EventOutfitCreated, &model.CustomOutfit{ID: "o1", UserID: "user-1"})

	for _, c := range []*Client{phone, tablet} {
		msg := receive(t, c)
		assert.Equal(t, EventOutfitCreated, msg["type"])
		assert.Equal(t, "o1", msg["outfit_id"])
		assert.NotNil(t, msg["outfit"])
	}
	assert.Len(t, other.Send, 0)
}

func TestHub_DeletedEventOmitsOutfitBody(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, "user-1")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline("user-1") }, time.Second, 10*time.Millisecond)

	hub.PublishOutfitEvent("user-1", EventOutfitDeleted, &model.CustomOutfit{ID: "o1"})

	msg := receive(t, c)
	assert.Equal(t, EventOutfitDeleted, msg["type"])
	_, hasOutfit := msg["outfit"]
	assert.False(t, hasOutfit)
}

func TestHub_PingGetsPongOnSameSession(t *testing.T) {
	hub := startHub(t)
	a := newTestClient(hub, "user-1")
	b := newTestClient(hub, "user-1")
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.SessionCount("user-1") == 2 }, time.Second, 10*time.Millisecond)

	hub.HandleClientMessage(a, []byte(`{"type":"ping"}`))

	msg := receive(t, a)
	assert.Equal(t, "pong", msg["type"])
	assert.Len(t, b.Send, 0)
}

func TestHub_RateLimitDropsExcessMessages(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, "user-1")
	c.Send = make(chan []byte, 64)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline("user-1") }, time.Second, 10*time.Millisecond)

	for i := 0; i < maxMessagesPerSecond+5; i++ {
		hub.HandleClientMessage(c, []byte(`{"type":"ping"}`))
	}

	assert.Eventually(t, func() bool { return len(c.Send) == maxMessagesPerSecond }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, c.Send, maxMessagesPerSecond)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, "user-1")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline("user-1") }, time.Second, 10*time.Millisecond)

	hub.Unregister(c)

	require.Eventually(t, func() bool { return !hub.IsUserOnline("user-1") }, time.Second, 10*time.Millisecond)
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_CallsAfterStopDoNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := newTestClient(hub, "user-1")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline("user-1") }, time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	_, ok := <-c.Send
	require.False(t, ok)

	// more calls than the unregister queue holds
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Unregister(c)
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after the hub stopped")
	}

	late := newTestClient(hub, "user-2")
	hub.Register(late)
	_, ok = <-late.Send
	assert.False(t, ok)
	assert.False(t, hub.IsUserOnline("user-2"))
}
