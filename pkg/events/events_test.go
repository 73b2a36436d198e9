package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversInOrder(t *testing.T) {
	b := NewBroker()
	b.Start()

	sub := b.Subscribe()
	phases := []string{"validating", "ensuring-infrastructure", "uploading"}
	for _, p := range phases {
		b.Publish(&Event{Type: EventPhaseEntered, Phase: p})
	}
	b.Stop()

	var got []string
	for ev := range sub {
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
		got = append(got, ev.Phase)
	}
	assert.Equal(t, phases, got)
}

func TestBrokerStopClosesSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()

	sub := b.Subscribe()
	blocking := b.SubscribeBlocking()

	b.Stop()

	for _, ch := range []Subscriber{sub, blocking} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("subscriber channel was not closed")
		}
	}
	b.mu.RLock()
	assert.Empty(t, b.subscribers)
	b.mu.RUnlock()

	// Stop is idempotent
	b.Stop()
}

func TestBrokerBestEffortSubscriberDropsWhenFull(t *testing.T) {
	b := NewBroker()
	b.Start()

	sub := b.Subscribe()
	for i := 0; i < 80; i++ {
		b.Publish(&Event{Type: EventOperationPolled})
	}
	b.Publish(&Event{Type: EventRunFailed})
	b.Stop()

	var got []*Event
	for ev := range sub {
		got = append(got, ev)
	}
	assert.Len(t, got, 50)
	assert.NotEqual(t, EventRunFailed, got[len(got)-1].Type)
}

func TestBrokerBlockingSubscriberReceivesEverything(t *testing.T) {
	b := NewBroker()
	b.Start()

	sub := b.SubscribeBlocking()
	received := make(chan []*Event)
	go func() {
		var got []*Event
		for ev := range sub {
			// A slow reader must not lose events
			time.Sleep(100 * time.Microsecond)
			got = append(got, ev)
		}
		received <- got
	}()

	for i := 0; i < 200; i++ {
		b.Publish(&Event{Type: EventOperationPolled})
	}
	b.Publish(&Event{Type: EventRunFailed, Message: "awaiting-operation: cancelled"})
	b.Stop()

	got := <-received
	require.Len(t, got, 201)
	assert.Equal(t, EventRunFailed, got[200].Type)
}
