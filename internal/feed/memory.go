package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRedeliveryDelay is how long a failed event waits before it is
// delivered again
const DefaultRedeliveryDelay = time.Second

// MemoryOption configures a MemoryBroker
type MemoryOption func(*MemoryBroker)

// WithRedeliveryDelay sets the delay before a failed event is redelivered
func WithRedeliveryDelay(d time.Duration) MemoryOption {
	return func(b *MemoryBroker) {
		b.redeliveryDelay = d
	}
}

// MemoryBroker is an in-process broker. Concurrent subscribers compete for
// events the way members of a consumer group do. The queue is unbounded so a
// handler may publish without waiting for its own subscriber.
type MemoryBroker struct {
	mu              sync.Mutex
	queue           []Event
	ready           chan struct{}
	done            chan struct{}
	closeOnce       sync.Once
	redeliveryDelay time.Duration
}

var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker creates an in-process broker
func NewMemoryBroker(opts ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		ready:           make(chan struct{}, 1),
		done:            make(chan struct{}),
		redeliveryDelay: DefaultRedeliveryDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish queues an event. It never waits for a subscriber.
func (b *MemoryBroker) Publish(ctx context.Context, event Event) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.enqueue(event)
	return nil
}

// Subscribe handles events one at a time until ctx is cancelled or the
// broker is closed
func (b *MemoryBroker) Subscribe(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		default:
		}

		event, ok := b.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-b.done:
				return nil
			case <-b.ready:
			}
			continue
		}

		if err := handler(ctx, event); err != nil {
			slog.WarnContext(ctx, "Event handling failed, scheduling redelivery",
				"table", event.Table, "key", event.Key, "status", event.Status, "error", err)
			b.redeliver(event)
		}
	}
}

// Pending returns the number of queued events
func (b *MemoryBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *MemoryBroker) enqueue(event Event) {
	b.mu.Lock()
	b.queue = append(b.queue, event)
	b.mu.Unlock()
	b.signal()
}

func (b *MemoryBroker) dequeue() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return Event{}, false
	}
	event := b.queue[0]
	b.queue[0] = Event{}
	b.queue = b.queue[1:]
	if len(b.queue) > 0 {
		// wake another competing subscriber
		b.signal()
	}
	return event, true
}

func (b *MemoryBroker) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *MemoryBroker) redeliver(event Event) {
	time.AfterFunc(b.redeliveryDelay, func() {
		select {
		case <-b.done:
		default:
			b.enqueue(event)
		}
	})
}

// Close stops all subscribers
func (b *MemoryBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	return nil
}
