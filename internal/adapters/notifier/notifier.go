// Package notifier fans out leaderboard change events to session subscribers.
//
// Delivery is at-most-once: a full dispatch queue or a slow subscriber drops
// the event. Subscribers that miss an event recover via an on-demand snapshot,
// so no delivery guarantee stronger than best-effort is attempted here.
package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/pkg/metrics"
)

// Notifier publishes change events and hands out session-scoped subscriptions.
type Notifier interface {
	// Publish delivers the event to current subscribers of its session,
	// best effort. It never blocks the writer.
	Publish(ctx context.Context, ev model.ChangeEvent)

	// Subscribe returns a subscription yielding the session's change events
	// until cancelled. Cancelling one subscription does not affect others.
	Subscribe(ctx context.Context, session string) *Subscription
}

// Subscription is a cancellable stream of change events for one session.
type Subscription struct {
	id      string
	session string
	ch      chan model.ChangeEvent
	done    chan struct{}
	once    sync.Once
	broker  *Broker
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// C returns the event channel. It is closed when the subscription is cancelled.
func (s *Subscription) C() <-chan model.ChangeEvent { return s.ch }

// Cancel releases the subscription's resources. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
		close(s.done)
		close(s.ch)
		metrics.DecrementSubscriptions()
	})
}

// Broker implements Notifier with per-subscriber buffered channels and a
// sharded dispatch queue. A session always hashes to the same shard, so one
// dispatcher owns its events and per-session publish order is preserved.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription // session -> subscription id -> sub
	closed bool

	bufferSize int
	shardCount int
	queueSize  int
	shards     []chan model.ChangeEvent

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewBroker constructs a broker and starts its dispatchers.
func NewBroker(ctx context.Context, opts ...Option) *Broker {
	b := &Broker{
		subs:       make(map[string]map[string]*Subscription),
		bufferSize: 16,
		shardCount: 4,
		queueSize:  1024,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.shards = make([]chan model.ChangeEvent, b.shardCount)
	for i := range b.shards {
		b.shards[i] = make(chan model.ChangeEvent, b.queueSize)
	}
	b.stopChan = make(chan struct{})

	for i := range b.shards {
		b.wg.Add(1)
		go b.dispatch(ctx, i)
	}

	return b
}

// Close stops all dispatchers. Events still queued are dropped, consistent
// with the at-most-once contract.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()
	return nil
}

// Publish enqueues the event onto its session's dispatch shard.
func (b *Broker) Publish(ctx context.Context, ev model.ChangeEvent) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		metrics.RecordEventDropped()
		return
	}

	shard := b.shards[shardFor(ev.SessionID, len(b.shards))]
	select {
	case shard <- ev:
		metrics.RecordEventPublished()
	default:
		// Queue full: drop rather than stall the writer.
		metrics.RecordEventDropped()
		metrics.RecordErrorByComponent("notifier", "queue_full")
	}
}

// Subscribe registers a new subscription for the session. The subscription is
// cancelled automatically when ctx ends.
func (b *Broker) Subscribe(ctx context.Context, session string) *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		session: session,
		ch:      make(chan model.ChangeEvent, b.bufferSize),
		done:    make(chan struct{}),
		broker:  b,
	}

	b.mu.Lock()
	if b.subs[session] == nil {
		b.subs[session] = make(map[string]*Subscription)
	}
	b.subs[session][sub.id] = sub
	b.mu.Unlock()

	metrics.IncrementSubscriptions()

	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()

	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.session]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(b.subs, sub.session)
		}
	}
}

// dispatch drains one shard and fans events out to that session's subscribers.
func (b *Broker) dispatch(ctx context.Context, shard int) {
	defer b.wg.Done()
	ch := b.shards[shard]
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case ev := <-ch:
			b.deliver(ev)
			metrics.UpdateDispatchQueueDepth(shardName(shard), len(ch))
		}
	}
}

// deliver sends the event to every current subscriber of its session with a
// bounded (non-blocking) attempt per subscriber. The read lock is held across
// the sends: Cancel closes a subscriber channel only after it has removed the
// subscription under the write lock, so a channel in this loop is never closed
// mid-send. Sends never block, so holding the lock here is cheap.
func (b *Broker) deliver(ev model.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			// Subscriber buffer full: skip it for this event.
			metrics.RecordEventDropped()
		}
	}
}
