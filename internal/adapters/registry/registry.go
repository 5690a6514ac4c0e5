// Package registry tracks per-session participant display names.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Placeholder returned when a participant never registered a name.
// Reads must not fail the surrounding operation.
const Placeholder = "anonymous"

// Registry stores display names per session. Names are first-write-wins:
// display names are cosmetic, and letting races overwrite them would make
// the leaderboard flicker, so the policy favors stability over freshness.
type Registry interface {
	// RegisterName records the participant's display name.
	// Later calls with a different name are ignored.
	RegisterName(ctx context.Context, session, participantID, name string) error

	// NameOf returns the registered name, or Placeholder if never registered.
	NameOf(ctx context.Context, session, participantID string) string

	// Expire (re)sets the session's expiry horizon. Called on every write.
	Expire(ctx context.Context, session string, ttl time.Duration) error
}

// roster holds one session's names behind its own lock.
type roster struct {
	mu        sync.RWMutex
	names     map[string]string
	expiresAt time.Time
}

func (r *roster) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && now.After(r.expiresAt)
}

// InMemoryRegistry implements Registry with a map of per-session rosters
// and a TTL sweeper mirroring the ranked store's.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	rosters map[string]*roster

	defaultTTL    time.Duration
	sweepInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// Option applies a configuration option to the InMemoryRegistry.
type Option func(*InMemoryRegistry)

// WithDefaultTTL sets the expiry horizon given to newly created sessions.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(r *InMemoryRegistry) {
		if ttl > 0 {
			r.defaultTTL = ttl
		}
	}
}

// WithSweepInterval sets how often expired sessions are purged.
func WithSweepInterval(interval time.Duration) Option {
	return func(r *InMemoryRegistry) {
		if interval > 0 {
			r.sweepInterval = interval
		}
	}
}

// NewInMemoryRegistry constructs a registry and starts its expiry sweeper.
func NewInMemoryRegistry(ctx context.Context, opts ...Option) *InMemoryRegistry {
	r := &InMemoryRegistry{
		rosters:       make(map[string]*roster),
		defaultTTL:    30 * time.Minute,
		sweepInterval: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.stopChan = make(chan struct{})
	r.startSweeper(ctx)

	return r
}

// Close stops the expiry sweeper.
func (r *InMemoryRegistry) Close() error {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.wg.Wait()
	return nil
}

func (r *InMemoryRegistry) getRoster(session string, create bool) *roster {
	now := time.Now()

	r.mu.RLock()
	ros, ok := r.rosters[session]
	r.mu.RUnlock()
	if ok && !ros.expired(now) {
		return ros
	}
	if !create {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ros, ok = r.rosters[session]; ok && !ros.expired(now) {
		return ros
	}
	ros = &roster{
		names:     make(map[string]string),
		expiresAt: now.Add(r.defaultTTL),
	}
	r.rosters[session] = ros
	return ros
}

// RegisterName records the participant's display name, first write wins.
func (r *InMemoryRegistry) RegisterName(ctx context.Context, session, participantID, name string) error {
	ros := r.getRoster(session, true)

	ros.mu.Lock()
	defer ros.mu.Unlock()
	if _, ok := ros.names[participantID]; ok {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	ros.names[participantID] = name
	return nil
}

// NameOf returns the registered name, or Placeholder if never registered.
func (r *InMemoryRegistry) NameOf(ctx context.Context, session, participantID string) string {
	ros := r.getRoster(session, false)
	if ros == nil {
		return Placeholder
	}

	ros.mu.RLock()
	defer ros.mu.RUnlock()
	if name, ok := ros.names[participantID]; ok {
		return name
	}
	return Placeholder
}

// Expire (re)sets the session's expiry horizon.
func (r *InMemoryRegistry) Expire(ctx context.Context, session string, ttl time.Duration) error {
	ros := r.getRoster(session, false)
	if ros == nil {
		return nil
	}
	ros.mu.Lock()
	ros.expiresAt = time.Now().Add(ttl)
	ros.mu.Unlock()
	return nil
}

func (r *InMemoryRegistry) startSweeper(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *InMemoryRegistry) sweep() {
	now := time.Now()
	r.mu.Lock()
	for session, ros := range r.rosters {
		if ros.expired(now) {
			delete(r.rosters, session)
		}
	}
	r.mu.Unlock()
}
