package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(time.Hour)

	a := hub.Subscribe("s1")
	b := hub.Subscribe("s1")
	require.Equal(t, 2, hub.SubscriberCount("s1"))

	hub.Publish("s1", Event{Type: TypeStart, Total: 3})

	assert.Equal(t, TypeStart, (<-a).Type)
	assert.Equal(t, TypeStart, (<-b).Type)
}

func TestPublishIsScopedPerSession(t *testing.T) {
	hub := NewHub(time.Hour)

	a := hub.Subscribe("s1")
	b := hub.Subscribe("s2")

	hub.Publish("s1", Event{Type: TypeStart})

	assert.Len(t, a, 1)
	assert.Len(t, b, 0)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(time.Hour)

	// headless run: nobody ever subscribed
	hub.Publish("ghost", Event{Type: TypeComplete})
	assert.Equal(t, 0, hub.SubscriberCount("ghost"))
}

func TestUnsubscribeDiscardsEmptySession(t *testing.T) {
	hub := NewHub(time.Hour)

	ch := hub.Subscribe("s1")
	hub.Unsubscribe("s1", ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount("s1"))

	// double unsubscribe must not panic
	hub.Unsubscribe("s1", ch)
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	hub := NewHub(time.Hour)

	slow := hub.Subscribe("s1")
	healthy := hub.Subscribe("s1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+5; i++ {
			hub.Publish("s1", Event{Type: TypeProgress, Processed: i + 1})
			// keep the healthy subscriber drained
			<-healthy
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a subscriber that stopped draining")
	}

	// the slow subscriber kept only what fit in its buffer
	assert.Equal(t, subscriberBuffer, len(slow))
}

func TestKeepAlivePings(t *testing.T) {
	hub := NewHub(10 * time.Millisecond)

	ch := hub.Subscribe("s1")

	select {
	case ev := <-ch:
		assert.Equal(t, TypePing, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no keep-alive received")
	}
}

func TestCloseSession(t *testing.T) {
	hub := NewHub(time.Hour)

	ch := hub.Subscribe("s1")
	hub.Publish("s1", Event{Type: TypeComplete})
	hub.CloseSession("s1")

	ev, open := <-ch
	require.True(t, open)
	assert.Equal(t, TypeComplete, ev.Type)

	_, open = <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount("s1"))

	// idempotent
	hub.CloseSession("s1")
}
