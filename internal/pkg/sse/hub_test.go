package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()

	aliceCh, aliceDone := hub.Subscribe("alice")
	defer aliceDone()
	bobCh, bobDone := hub.Subscribe("bob")
	defer bobDone()

	n := hub.Publish("alice", Event{Event: "notification", Data: "ot_approved"})
	assert.Equal(t, 1, n)

	select {
	case ev := <-aliceCh:
		assert.Equal(t, "alice", ev.UserID)
		assert.Equal(t, "ot_approved", ev.Data)
	default:
		t.Fatal("alice did not receive the event")
	}

	select {
	case <-bobCh:
		t.Fatal("bob received an event meant for alice")
	default:
	}
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	_, done := hub.Subscribe("alice")
	defer done()

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, hub.Publish("alice", Event{Event: "notification"}))
	}
	assert.Equal(t, 0, hub.Publish("alice", Event{Event: "notification"}))
}

func TestHub_CleanupIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, done := hub.Subscribe("alice")
	assert.Equal(t, 1, hub.SubscriberCount("alice"))

	done()
	done()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount("alice"))
	assert.Equal(t, 0, hub.Publish("alice", Event{}))
}

func TestHub_PublishToMany(t *testing.T) {
	hub := NewHub()
	a, doneA := hub.Subscribe("a")
	defer doneA()
	b, doneB := hub.Subscribe("b")
	defer doneB()

	hub.PublishToMany([]string{"a", "b", "c"}, Event{Event: "notification"})

	assert.Equal(t, "a", (<-a).UserID)
	assert.Equal(t, "b", (<-b).UserID)
}
