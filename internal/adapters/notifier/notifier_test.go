package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/okian/quizboard/internal/domain/model"
)

func recvEvent(t *testing.T, sub *Subscription) model.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return model.ChangeEvent{}
}

func TestBroker_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx)
	defer b.Close()

	sub := b.Subscribe(ctx, "q1")
	defer sub.Cancel()

	b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: 75})

	ev := recvEvent(t, sub)
	if ev.ParticipantID != "alice" || ev.Score != 75 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestBroker_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx)
	defer b.Close()

	subQ1 := b.Subscribe(ctx, "q1")
	defer subQ1.Cancel()
	subQ2 := b.Subscribe(ctx, "q2")
	defer subQ2.Cancel()

	b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: 10})

	ev := recvEvent(t, subQ1)
	if ev.SessionID != "q1" {
		t.Errorf("expected q1 event, got %+v", ev)
	}

	select {
	case ev := <-subQ2.C():
		t.Errorf("q2 subscriber received foreign event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_PerSessionOrdering(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx, WithShardCount(4))
	defer b.Close()

	sub := b.Subscribe(ctx, "q1")
	defer sub.Cancel()

	const n = 10
	for i := 1; i <= n; i++ {
		b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: int64(i)})
	}

	for i := 1; i <= n; i++ {
		ev := recvEvent(t, sub)
		if ev.Score != int64(i) {
			t.Fatalf("events out of order: expected score %d, got %d", i, ev.Score)
		}
	}
}

func TestBroker_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx, WithSubscriberBuffer(1))
	defer b.Close()

	slow := b.Subscribe(ctx, "q1")
	defer slow.Cancel()
	fast := b.Subscribe(ctx, "q1")
	defer fast.Cancel()

	// The slow subscriber never drains; its buffer of one fills immediately
	// and later events to it are dropped.
	for i := 1; i <= 5; i++ {
		b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: int64(i)})
		ev := recvEvent(t, fast)
		if ev.Score != int64(i) {
			t.Fatalf("fast subscriber missed event %d, got %d", i, ev.Score)
		}
	}

	ev := recvEvent(t, slow)
	if ev.Score != 1 {
		t.Errorf("slow subscriber should hold the first event, got %d", ev.Score)
	}
}

func TestBroker_CancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx)
	defer b.Close()

	sub := b.Subscribe(ctx, "q1")
	sub.Cancel()
	sub.Cancel()

	if _, ok := <-sub.C(); ok {
		t.Error("expected channel closed after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: 1})
	time.Sleep(20 * time.Millisecond)
}

func TestBroker_CancelOneKeepsOthers(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx)
	defer b.Close()

	first := b.Subscribe(ctx, "q1")
	second := b.Subscribe(ctx, "q1")
	defer second.Cancel()

	first.Cancel()

	b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: 42})

	ev := recvEvent(t, second)
	if ev.Score != 42 {
		t.Errorf("surviving subscriber missed the event: %+v", ev)
	}
}

func TestBroker_ContextCancelEndsSubscription(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx)
	defer b.Close()

	subCtx, cancel := context.WithCancel(ctx)
	sub := b.Subscribe(subCtx, "q1")
	cancel()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not cancelled after context end")
	}
}

func TestBroker_PublishAfterCloseIsSafe(t *testing.T) {
	ctx := context.Background()
	b := NewBroker(ctx)
	sub := b.Subscribe(ctx, "q1")
	defer sub.Cancel()

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Publish(ctx, model.ChangeEvent{SessionID: "q1", ParticipantID: "alice", Score: 1})
}
