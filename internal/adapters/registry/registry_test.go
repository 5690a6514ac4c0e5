package registry

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRegistry_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	reg := NewInMemoryRegistry(ctx)
	defer reg.Close()

	if err := reg.RegisterName(ctx, "q1", "alice", "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.RegisterName(ctx, "q1", "alice", "Alicia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if name := reg.NameOf(ctx, "q1", "alice"); name != "Alice" {
		t.Errorf("expected first registered name to win, got %q", name)
	}
}

func TestRegistry_Placeholder(t *testing.T) {
	ctx := context.Background()
	reg := NewInMemoryRegistry(ctx)
	defer reg.Close()

	if name := reg.NameOf(ctx, "q1", "ghost"); name != Placeholder {
		t.Errorf("expected %q for unknown participant, got %q", Placeholder, name)
	}

	// A blank name does not claim the slot; a later real name still wins.
	if err := reg.RegisterName(ctx, "q1", "bob", "   "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name := reg.NameOf(ctx, "q1", "bob"); name != Placeholder {
		t.Errorf("expected %q after blank registration, got %q", Placeholder, name)
	}
	if err := reg.RegisterName(ctx, "q1", "bob", "Bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name := reg.NameOf(ctx, "q1", "bob"); name != "Bob" {
		t.Errorf("expected Bob, got %q", name)
	}
}

func TestRegistry_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	reg := NewInMemoryRegistry(ctx)
	defer reg.Close()

	if err := reg.RegisterName(ctx, "q1", "alice", "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name := reg.NameOf(ctx, "q2", "alice"); name != Placeholder {
		t.Errorf("expected %q in other session, got %q", Placeholder, name)
	}
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	reg := NewInMemoryRegistry(ctx)
	defer reg.Close()

	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = reg.RegisterName(ctx, "q1", "alice", name)
		}(n)
	}
	wg.Wait()

	got := reg.NameOf(ctx, "q1", "alice")
	found := false
	for _, n := range names {
		if got == n {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected one of the racing names, got %q", got)
	}

	// Whatever won stays stable afterwards.
	_ = reg.RegisterName(ctx, "q1", "alice", "Latecomer")
	if again := reg.NameOf(ctx, "q1", "alice"); again != got {
		t.Errorf("name changed after the race settled: %q -> %q", got, again)
	}
}

func TestRegistry_Expiry(t *testing.T) {
	ctx := context.Background()
	reg := NewInMemoryRegistry(ctx, WithDefaultTTL(20*time.Millisecond), WithSweepInterval(5*time.Millisecond))
	defer reg.Close()

	if err := reg.RegisterName(ctx, "q1", "alice", "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Expire(ctx, "q1", 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if name := reg.NameOf(ctx, "q1", "alice"); name != Placeholder {
		t.Errorf("expected %q after expiry, got %q", Placeholder, name)
	}

	// The expired roster is gone; a re-registration starts fresh.
	if err := reg.RegisterName(ctx, "q1", "alice", "Alicia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name := reg.NameOf(ctx, "q1", "alice"); name != "Alicia" {
		t.Errorf("expected fresh registration to stick, got %q", name)
	}
}
