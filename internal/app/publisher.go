package app

import (
	"sync"
)

// Publisher fans the latest engine state out to subscribers without ever
// blocking the poll loop. Each subscriber channel holds one pending update;
// a slow consumer sees only the newest state, never a backlog.
type Publisher struct {
	mu   sync.Mutex
	subs map[chan EngineState]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{
		subs: make(map[chan EngineState]struct{}),
	}
}

// Subscribe registers a new subscriber.
func (p *Publisher) Subscribe() chan EngineState {
	ch := make(chan EngineState, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (p *Publisher) Unsubscribe(ch chan EngineState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[ch]; ok {
		delete(p.subs, ch)
		close(ch)
	}
}

// Publish delivers the state to every subscriber, replacing any undelivered
// previous update.
func (p *Publisher) Publish(state EngineState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ch := range p.subs {
		select {
		case ch <- state:
		default:
			// Drop the stale update, then retry once
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
