// Package repository defines the ranked store interface and errors.
package repository

import (
	"context"
	"time"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank          int
	ParticipantID string
	Score         int64
}

// Store provides read/write access to per-session ranking state.
//
// All writes are scoped to a single (session, participant) key; writes to
// different sessions never contend.
type Store interface {
	// EnsureParticipant creates a zero-score entry if absent.
	// It is a no-op if the participant already exists and never resets a score.
	EnsureParticipant(ctx context.Context, session, participantID string) error

	// ApplyDelta atomically adds delta to the participant's score and returns
	// the resulting value. Concurrent deltas for the same participant serialize;
	// none are lost.
	ApplyDelta(ctx context.Context, session, participantID string, delta int64) (int64, error)

	// TopN returns the n highest-scoring participants, descending by score,
	// ties broken by join order. Returns ErrInvalidLimit for n < 1.
	TopN(ctx context.Context, session string, n int) ([]Entry, error)

	// ScoreOf returns the participant's current score.
	// Returns ErrNotFound if the participant never joined.
	ScoreOf(ctx context.Context, session, participantID string) (int64, error)

	// RankOf returns the participant's current rank and score.
	// Returns ErrNotFound if the participant never joined.
	RankOf(ctx context.Context, session, participantID string) (Entry, error)

	// Expire (re)sets the session's expiry horizon. Called on every write.
	Expire(ctx context.Context, session string, ttl time.Duration) error

	// Count returns the number of participants on the session's board.
	Count(ctx context.Context, session string) int

	// Sessions returns the number of live sessions.
	Sessions(ctx context.Context) int
}
