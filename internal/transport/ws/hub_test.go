package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, phoneID, name string) *Client {
	t.Helper()
	c := NewClient(hub, nil, uuid.New(), phoneID, name)
	hub.register <- c
	require.Eventually(t, func() bool {
		return hub.IsOnline(phoneID)
	}, time.Second, 5*time.Millisecond)
	return c
}

// drain discards everything currently queued on the client's send channel.
func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

// countEvents reads the client's queue for a settle window and counts
// occurrences of the given event type.
func countEvents(t *testing.T, c *Client, eventType string) int {
	t.Helper()
	count := 0
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return count
			}
			var evt Event
			require.NoError(t, json.Unmarshal(data, &evt))
			if evt.Type == eventType {
				count++
			}
		case <-deadline:
			return count
		}
	}
}

func waitForEvent(t *testing.T, c *Client, eventType string) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case data, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %s", eventType)
			var evt Event
			require.NoError(t, json.Unmarshal(data, &evt))
			if evt.Type == eventType {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		}
	}
}

func marshalEvent(t *testing.T, eventType string, conversationID *uuid.UUID) []byte {
	t.Helper()
	evt, err := NewEvent(eventType, conversationID, struct{}{})
	require.NoError(t, err)
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return data
}

func TestHubTracksPresencePerAccount(t *testing.T) {
	hub := startHub(t)

	assert.False(t, hub.IsOnline("919000000001"))

	first := connect(t, hub, "919000000001", "Alice")
	second := connect(t, hub, "919000000001", "Alice")

	// Two tabs, one account: closing one keeps the account online.
	hub.unregister <- first
	time.Sleep(50 * time.Millisecond)
	assert.True(t, hub.IsOnline("919000000001"))

	hub.unregister <- second
	require.Eventually(t, func() bool {
		return !hub.IsOnline("919000000001")
	}, time.Second, 5*time.Millisecond)
}

func TestHubBroadcastsPresenceTransitions(t *testing.T) {
	hub := startHub(t)

	alice := connect(t, hub, "919000000001", "Alice")
	bob := connect(t, hub, "919000000002", "Bob")

	// Alice was already connected, so she sees Bob come online.
	evt := waitForEvent(t, alice, EventTypePresence)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "919000000002", p.PhoneID)
	assert.Equal(t, "online", p.Status)

	hub.unregister <- bob
	evt = waitForEvent(t, alice, EventTypePresence)
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "919000000002", p.PhoneID)
	assert.Equal(t, "offline", p.Status)
}

func TestPublishReachesRoomAndGlobalListeners(t *testing.T) {
	hub := startHub(t)
	convID := uuid.New()

	member := connect(t, hub, "919000000001", "Alice")
	outsider := connect(t, hub, "919000000002", "Bob")
	hub.Join(member, convID)
	drain(member)
	drain(outsider)

	hub.Publish(&convID, marshalEvent(t, EventTypeMessageCreated, &convID))

	// Room members hear it twice (room copy plus global copy), everyone
	// else exactly once.
	assert.Equal(t, 2, countEvents(t, member, EventTypeMessageCreated))
	assert.Equal(t, 1, countEvents(t, outsider, EventTypeMessageCreated))
}

func TestPublishWithoutRoomGoesGlobalOnly(t *testing.T) {
	hub := startHub(t)

	alice := connect(t, hub, "919000000001", "Alice")
	bob := connect(t, hub, "919000000002", "Bob")
	drain(alice)
	drain(bob)

	hub.Publish(nil, marshalEvent(t, EventTypeConversationDeleted, nil))

	assert.Equal(t, 1, countEvents(t, alice, EventTypeConversationDeleted))
	assert.Equal(t, 1, countEvents(t, bob, EventTypeConversationDeleted))
}

func TestTypingStaysInRoomAndSkipsSender(t *testing.T) {
	hub := startHub(t)
	convID := uuid.New()

	alice := connect(t, hub, "919000000001", "Alice")
	bob := connect(t, hub, "919000000002", "Bob")
	carol := connect(t, hub, "919000000003", "Carol")
	hub.Join(alice, convID)
	hub.Join(bob, convID)
	drain(alice)
	drain(bob)
	drain(carol)

	hub.broadcastTyping(alice, convID)

	evt := waitForEvent(t, bob, EventTypeTyping)
	var p TypingPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "919000000001", p.PhoneID)
	assert.Equal(t, "Alice", p.Name)

	assert.Equal(t, 0, countEvents(t, alice, EventTypeTyping))
	assert.Equal(t, 0, countEvents(t, carol, EventTypeTyping))
}

func TestLeaveStopsRoomDelivery(t *testing.T) {
	hub := startHub(t)
	convID := uuid.New()

	alice := connect(t, hub, "919000000001", "Alice")
	bob := connect(t, hub, "919000000002", "Bob")
	hub.Join(bob, convID)
	drain(bob)

	hub.broadcastTyping(alice, convID)
	assert.Equal(t, 1, countEvents(t, bob, EventTypeTyping))

	hub.Leave(bob, convID)
	hub.broadcastTyping(alice, convID)
	assert.Equal(t, 0, countEvents(t, bob, EventTypeTyping))
}

func TestUnregisterCleansUpRooms(t *testing.T) {
	hub := startHub(t)
	convID := uuid.New()

	alice := connect(t, hub, "919000000001", "Alice")
	bob := connect(t, hub, "919000000002", "Bob")
	hub.Join(bob, convID)

	hub.unregister <- bob
	require.Eventually(t, func() bool {
		return !hub.IsOnline("919000000002")
	}, time.Second, 5*time.Millisecond)

	// Publishing into the abandoned room must not panic or block.
	drain(alice)
	hub.Publish(&convID, marshalEvent(t, EventTypeMessageCreated, &convID))
	assert.Equal(t, 1, countEvents(t, alice, EventTypeMessageCreated))
}
