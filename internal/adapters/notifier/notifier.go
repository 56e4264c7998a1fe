// Package notifier broadcasts score changes to live subscribers.
//
// Publish is fire-and-forget: it never blocks the write path. Each
// subscriber owns a bounded buffer; when a subscriber falls behind, the
// oldest buffered notification is dropped to make room for the newest.
// Delivery is best-effort, at most once per subscriber per event.
package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

const defaultBufferSize = 16

// Notifier fans change notifications out to subscribers.
type Notifier struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
	closed     bool
}

// Subscription is one subscriber's handle on the broadcast stream.
type Subscription struct {
	id     string
	ch     chan model.ChangeNotification
	cancel func(id string)
	once   sync.Once
}

// Events returns the subscriber's notification channel. It is closed when
// the subscription is cancelled or the notifier shuts down.
func (s *Subscription) Events() <-chan model.ChangeNotification {
	return s.ch
}

// Close cancels the subscription and releases its buffer.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel(s.id)
	})
}

// New creates a notifier with configuration options.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		subs:       make(map[string]*Subscription),
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Subscribe registers a new subscriber and returns its handle.
func (n *Notifier) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		ch:     make(chan model.ChangeNotification, n.bufferSize),
		cancel: n.remove,
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		close(sub.ch)
		return sub
	}

	n.subs[sub.id] = sub
	metrics.UpdateNotifierSubscribers(len(n.subs))
	return sub
}

// Publish delivers event to every live subscriber without blocking.
func (n *Notifier) Publish(ctx context.Context, event model.ChangeNotification) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	for _, sub := range n.subs {
		select {
		case sub.ch <- event:
		default:
			// Buffer full: evict the oldest entry, then retry once. The
			// second send can still lose to a concurrent drain, in which
			// case the event is dropped for this subscriber.
			select {
			case <-sub.ch:
				metrics.RecordNotifierDrop()
			default:
			}
			select {
			case sub.ch <- event:
			default:
				metrics.RecordNotifierDrop()
			}
		}
	}
	metrics.RecordNotifierPublish()
}

// SubscriberCount returns the number of live subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close shuts the notifier down and closes every subscription channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true

	for id, sub := range n.subs {
		delete(n.subs, id)
		close(sub.ch)
	}
	metrics.UpdateNotifierSubscribers(0)
}

// remove deregisters one subscription and closes its channel.
func (n *Notifier) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[id]
	if !ok {
		return
	}
	delete(n.subs, id)
	close(sub.ch)
	metrics.UpdateNotifierSubscribers(len(n.subs))
}
