package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishFanOut(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(UserChannel("settlement", 1))
	b := hub.Subscribe(UserChannel("settlement", 1), HouseChannel("ABC123"))
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Publish(UserChannel("settlement", 1), EventRequest, map[string]int64{"from": 2})

	for _, sub := range []*Subscription{a, b} {
		select {
		case e := <-sub.C:
			assert.Equal(t, EventRequest, e.Name)
			assert.Equal(t, "user:settlement:1", e.Channel)
		default:
			t.Fatal("expected event delivered")
		}
	}
}

func TestHubPublishOnlyMatchingChannel(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(UserChannel("payment-approval", 1))
	defer hub.Unsubscribe(sub)

	hub.Publish(UserChannel("payment-approval", 2), EventRequest, nil)
	hub.Publish(UserChannel("settlement", 1), EventRequest, nil)

	select {
	case <-sub.C:
		t.Fatal("event leaked across channels")
	default:
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(HouseChannel("ABC123"))
	defer hub.Unsubscribe(sub)

	// Overfill the buffer; Publish must never block or panic.
	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Publish(HouseChannel("ABC123"), EventFetchUpdate, nil)
	}

	delivered := 0
	for {
		select {
		case <-sub.C:
			delivered++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, delivered)
}

func TestHubUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(HouseChannel("ABC123"))

	hub.Unsubscribe(sub)
	require.NotPanics(t, func() { hub.Unsubscribe(sub) })

	// Channel is closed after unsubscribe.
	_, open := <-sub.C
	assert.False(t, open)

	// Publishing to a channel with no subscribers is a no-op.
	require.NotPanics(t, func() {
		hub.Publish(HouseChannel("ABC123"), EventFetchUpdate, nil)
	})
}
