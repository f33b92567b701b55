package progress

import "sync"

// subscriberBuffer bounds how many events a slow subscriber can fall
// behind by before it starts dropping; the Orchestrator's own pipeline
// must never block waiting on an observer.
const subscriberBuffer = 256

// Publisher fans a run's events out to every active subscriber (e.g. one
// per connected SSE client). A run that has no subscribers still accepts
// Publish calls; they are simply discarded.
type Publisher struct {
	mu          sync.Mutex
	subscribers map[string]map[chan Event]struct{}
}

// NewPublisher constructs an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{subscribers: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a new observer for runID and returns a channel of
// events plus an unsubscribe function the caller must invoke when done.
func (p *Publisher) Subscribe(runID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	p.mu.Lock()
	if p.subscribers[runID] == nil {
		p.subscribers[runID] = make(map[chan Event]struct{})
	}
	p.subscribers[runID][ch] = struct{}{}
	p.mu.Unlock()

	unsubscribe := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if subs, ok := p.subscribers[runID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(p.subscribers, runID)
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Publish delivers ev to every subscriber of ev.RunID. A subscriber whose
// buffer is full is skipped for this event rather than blocking the
// Orchestrator's pipeline.
func (p *Publisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subscribers[ev.RunID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
