package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_DeliversEventsToSubscriber(t *testing.T) {
	p := NewPublisher()
	events, unsubscribe := p.Subscribe("run-1")
	defer unsubscribe()

	p.Publish(Event{RunID: "run-1", Name: "EMPLOYEES", Phase: PhaseStart})

	select {
	case ev := <-events:
		assert.Equal(t, "EMPLOYEES", ev.Name)
		assert.Equal(t, PhaseStart, ev.Phase)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublisher_IgnoresEventsForOtherRuns(t *testing.T) {
	p := NewPublisher()
	events, unsubscribe := p.Subscribe("run-1")
	defer unsubscribe()

	p.Publish(Event{RunID: "run-2", Name: "OTHER"})

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for unrelated run: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublisher_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	p := NewPublisher()
	done := make(chan struct{})
	go func() {
		p.Publish(Event{RunID: "nobody-listening"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestPublisher_UnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher()
	events, unsubscribe := p.Subscribe("run-1")
	unsubscribe()

	_, open := <-events
	require.False(t, open)
}
