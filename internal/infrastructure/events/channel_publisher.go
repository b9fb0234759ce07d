package events

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// ChannelPublisher forwards every published event, in publish order, to a
// receive-only channel. Publish never blocks on a slow reader: events queue
// internally until the reader catches up.
type ChannelPublisher struct {
	mu      sync.Mutex
	queue   []ports.DomainEvent
	closed  bool
	wake    chan struct{}
	out     chan ports.DomainEvent
	pumping sync.WaitGroup
}

// NewChannelPublisher starts the delivery goroutine and returns the publisher.
func NewChannelPublisher() *ChannelPublisher {
	p := &ChannelPublisher{
		wake: make(chan struct{}, 1),
		out:  make(chan ports.DomainEvent),
	}
	p.pumping.Add(1)
	go p.pump()
	return p
}

// Events returns the stream of published events. It is closed after Close
// once every queued event has been delivered.
func (p *ChannelPublisher) Events() <-chan ports.DomainEvent {
	return p.out
}

// Publish queues the event for delivery.
func (p *ChannelPublisher) Publish(_ context.Context, event ports.DomainEvent) error {
	if event == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.queue = append(p.queue, event)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Subscribe is not supported; consumers read Events instead.
func (p *ChannelPublisher) Subscribe(string, ports.EventHandler) (ports.Subscription, error) {
	return noopSubscription{}, nil
}

// Close stops accepting events and waits until the reader has received every
// queued event.
func (p *ChannelPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.pumping.Wait()
}

func (p *ChannelPublisher) pump() {
	defer p.pumping.Done()
	defer close(p.out)

	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		closed := p.closed
		p.mu.Unlock()

		for _, event := range batch {
			p.out <- event
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-p.wake
	}
}

var _ ports.EventPublisher = (*ChannelPublisher)(nil)
