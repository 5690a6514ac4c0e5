package repository

import "time"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithDefaultTTL sets the expiry horizon given to newly created sessions.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *TreapStore) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithSweepInterval sets how often expired sessions are purged.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}
