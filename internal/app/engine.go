// Package engine provides the session leaderboard engine consumed by the
// real-time gateway: join, delta recording, and snapshot assembly over the
// ranked store, session registry, and change notifier.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/quizboard/internal/adapters/notifier"
	"github.com/okian/quizboard/internal/adapters/registry"
	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/domain/dedupe"
	"github.com/okian/quizboard/internal/domain/judge"
	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/pkg/logger"
	"github.com/okian/quizboard/pkg/metrics"
)

// Engine orchestrates the ranked store, session registry, and change
// notifier. It is stateless between calls; all state lives in those
// components.
type Engine struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	names   registry.Registry
	events  notifier.Notifier
	oracle  judge.Judge
	deduper dedupe.Deduper

	// Configuration
	sessionTTL    time.Duration
	defaultTopN   int
	opTimeout     time.Duration
	retryAttempts int
	retryBackoff  time.Duration
	dedupeSize    int

	subscriberBuffer  int
	dispatchShards    int
	dispatchQueueSize int

	judgeMinLatency    time.Duration
	judgeMaxLatency    time.Duration
	questionPoints     map[string]int64
	defaultPoints      int64
	wrongAnswerPenalty int64
	answerKey          map[string]string

	// State
	started bool
	closers []func() error

	// Logging
	logger logger.Logger
}

// New constructs a new Engine with default configuration.
func New(opts ...Option) *Engine {
	e := &Engine{
		sessionTTL:         30 * time.Minute,
		defaultTopN:        20,
		opTimeout:          250 * time.Millisecond,
		retryAttempts:      3,
		retryBackoff:       25 * time.Millisecond,
		dedupeSize:         50_000,
		subscriberBuffer:   16,
		dispatchShards:     4,
		dispatchQueueSize:  1024,
		judgeMinLatency:    5 * time.Millisecond,
		judgeMaxLatency:    20 * time.Millisecond,
		questionPoints:     map[string]int64{},
		defaultPoints:      100,
		wrongAnswerPenalty: 10,
		answerKey:          map[string]string{},
		logger:             nil, // set at Start if not provided
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start initializes the engine's components.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	if e.logger == nil {
		e.logger = logger.Get()
	}

	e.logger.Info(ctx, "starting leaderboard engine...")

	store := repository.NewTreapStore(ctx, repository.WithDefaultTTL(e.sessionTTL))
	names := registry.NewInMemoryRegistry(ctx, registry.WithDefaultTTL(e.sessionTTL))
	broker := notifier.NewBroker(ctx,
		notifier.WithSubscriberBuffer(e.subscriberBuffer),
		notifier.WithShardCount(e.dispatchShards),
		notifier.WithQueueSize(e.dispatchQueueSize),
	)
	e.store = store
	e.names = names
	e.events = broker
	e.closers = []func() error{store.Close, names.Close, broker.Close}

	e.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(e.dedupeSize))
	e.oracle = judge.NewInMemoryJudge(
		judge.WithLatencyRange(e.judgeMinLatency, e.judgeMaxLatency),
		judge.WithQuestionPoints(e.questionPoints, e.defaultPoints),
		judge.WithWrongAnswerPenalty(e.wrongAnswerPenalty),
		judge.WithAnswerKey(e.answerKey),
	)

	e.started = true
	e.logger.Info(ctx, "leaderboard engine started",
		logger.Int("dispatchShards", e.dispatchShards),
		logger.Int("subscriberBuffer", e.subscriberBuffer),
		logger.Any("sessionTTL", e.sessionTTL),
	)

	return nil
}

// Stop gracefully shuts down the engine's components.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}

	ctx := context.Background()
	e.logger.Info(ctx, "stopping leaderboard engine...")
	for _, closeFn := range e.closers {
		if err := closeFn(); err != nil {
			e.logger.Error(ctx, "component shutdown failed", logger.Error(err))
		}
	}
	e.closers = nil
	e.started = false
	e.logger.Info(ctx, "leaderboard engine stopped")
}

// Join registers the participant's display name, creates their zero-score
// entry, and returns a fresh snapshot. Idempotent: joining twice never resets
// a score or overwrites the first registered name.
func (e *Engine) Join(ctx context.Context, session, participantID, displayName string) (model.Snapshot, error) {
	if !e.isStarted() {
		return model.Snapshot{}, ErrNotStarted
	}
	if err := validateKeys(session, participantID); err != nil {
		return model.Snapshot{}, err
	}

	if err := e.ensure(ctx, session, participantID, displayName); err != nil {
		return model.Snapshot{}, err
	}

	metrics.RecordJoin()
	return e.buildSnapshot(ctx, session, participantID, e.defaultTopN, nil)
}

// RecordDelta ensures the participant exists (a delta may arrive before an
// explicit join), applies the delta atomically, publishes a change event
// carrying the new score, and returns a snapshot reflecting the update.
//
// The returned snapshot's RequesterScore is the value returned by the atomic
// increment itself, never a re-read, so it can't be skewed by a concurrent
// writer between the increment and the snapshot.
func (e *Engine) RecordDelta(ctx context.Context, session, participantID, displayName string, delta int64) (model.Snapshot, error) {
	if !e.isStarted() {
		return model.Snapshot{}, ErrNotStarted
	}
	if err := validateKeys(session, participantID); err != nil {
		return model.Snapshot{}, err
	}

	if err := e.ensure(ctx, session, participantID, displayName); err != nil {
		return model.Snapshot{}, err
	}

	var newScore int64
	err := e.withRetry(ctx, "engine.apply_delta", func(ctx context.Context) error {
		var err error
		newScore, err = e.store.ApplyDelta(ctx, session, participantID, delta)
		return err
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	metrics.RecordDeltaApplied()

	e.refreshTTL(ctx, session)

	// Best-effort fan-out; a missed event is healed by an on-demand snapshot.
	e.events.Publish(ctx, model.ChangeEvent{
		SessionID:     session,
		ParticipantID: participantID,
		Score:         newScore,
	})

	return e.buildSnapshot(ctx, session, participantID, e.defaultTopN, &newScore)
}

// Snapshot is a pure read: the current top-N plus the requester's score.
// A participant who never joined gets RequesterScore 0 and no entry is
// created as a side effect. An empty participant id means an anonymous
// viewer and is allowed here, unlike on the write paths.
func (e *Engine) Snapshot(ctx context.Context, session, participantID string, n int) (model.Snapshot, error) {
	if !e.isStarted() {
		return model.Snapshot{}, ErrNotStarted
	}
	if session == "" {
		return model.Snapshot{}, fmt.Errorf("engine.snapshot: blank session: %w", ErrInvalidInput)
	}
	if n < 1 {
		n = e.defaultTopN
	}
	return e.buildSnapshot(ctx, session, participantID, n, nil)
}

// Rank returns the participant's current rank row.
// Passes through repository.ErrNotFound for a participant who never joined.
func (e *Engine) Rank(ctx context.Context, session, participantID string) (repository.Entry, error) {
	if !e.isStarted() {
		return repository.Entry{}, ErrNotStarted
	}
	if err := validateKeys(session, participantID); err != nil {
		return repository.Entry{}, err
	}
	var entry repository.Entry
	err := e.withRetry(ctx, "engine.rank", func(ctx context.Context) error {
		var err error
		entry, err = e.store.RankOf(ctx, session, participantID)
		return err
	})
	return entry, err
}

// SubmitAnswer consults the judging oracle and records the produced delta.
// The oracle is trusted for delta magnitude; the engine never second-guesses it.
func (e *Engine) SubmitAnswer(ctx context.Context, sub model.Submission) (model.Verdict, model.Snapshot, error) {
	if !e.isStarted() {
		return model.Verdict{}, model.Snapshot{}, ErrNotStarted
	}
	if err := validateKeys(sub.SessionID, sub.ParticipantID); err != nil {
		return model.Verdict{}, model.Snapshot{}, err
	}
	if sub.QuestionID == "" {
		return model.Verdict{}, model.Snapshot{}, fmt.Errorf("engine.submit_answer: blank question: %w", ErrInvalidInput)
	}

	start := time.Now()
	verdict, err := e.oracle.Judge(ctx, sub)
	metrics.RecordJudgeLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("judge", "judge_failed")
		return model.Verdict{}, model.Snapshot{}, fmt.Errorf("engine.submit_answer: %w", err)
	}
	metrics.RecordSubmissionJudged()

	snap, err := e.RecordDelta(ctx, sub.SessionID, sub.ParticipantID, sub.DisplayName, verdict.Delta)
	if err != nil {
		return model.Verdict{}, model.Snapshot{}, err
	}
	return verdict, snap, nil
}

// Subscribe hands out a change event subscription for the session.
func (e *Engine) Subscribe(ctx context.Context, session string) *notifier.Subscription {
	return e.events.Subscribe(ctx, session)
}

// SeenAndRecord atomically checks if a submission id was seen and records it
// if not. Returns true if the submission was already seen.
func (e *Engine) SeenAndRecord(ctx context.Context, id string) bool {
	seen := e.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordSubmissionDuplicate()
	}
	return seen
}

// Unrecord removes a submission id from the seen list, allowing a retry.
func (e *Engine) Unrecord(ctx context.Context, id string) {
	e.deduper.Unrecord(ctx, id)
}

// GetStats returns engine statistics for monitoring.
func (e *Engine) GetStats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        e.started,
		"sessionTTL":     e.sessionTTL.String(),
		"dispatchShards": e.dispatchShards,
	}

	if e.started {
		ctx := context.Background()
		stats["sessions"] = e.store.Sessions(ctx)
		stats["dedupeEntries"] = e.deduper.Size()
	}

	return stats
}

// ensure registers the display name and the zero-score entry, then refreshes
// the session's TTL. Registry and store are always written together so their
// entry sets stay subsets of each other.
func (e *Engine) ensure(ctx context.Context, session, participantID, displayName string) error {
	err := e.withRetry(ctx, "engine.register_name", func(ctx context.Context) error {
		return e.names.RegisterName(ctx, session, participantID, displayName)
	})
	if err != nil {
		return err
	}
	err = e.withRetry(ctx, "engine.ensure_participant", func(ctx context.Context) error {
		return e.store.EnsureParticipant(ctx, session, participantID)
	})
	if err != nil {
		return err
	}
	e.refreshTTL(ctx, session)
	return nil
}

// refreshTTL pushes out both expiry horizons. Failures here don't fail the
// surrounding write; the next write refreshes again.
func (e *Engine) refreshTTL(ctx context.Context, session string) {
	if err := e.store.Expire(ctx, session, e.sessionTTL); err != nil {
		e.logger.Warn(ctx, "store ttl refresh failed", logger.String("session", session), logger.Error(err))
	}
	if err := e.names.Expire(ctx, session, e.sessionTTL); err != nil {
		e.logger.Warn(ctx, "registry ttl refresh failed", logger.String("session", session), logger.Error(err))
	}
}

// buildSnapshot assembles the top-N rows with display names plus the
// requester's score. ownScore, when set, is used verbatim (the ApplyDelta
// return value); otherwise the score is read from the store with never-joined
// mapping to 0.
func (e *Engine) buildSnapshot(ctx context.Context, session, participantID string, n int, ownScore *int64) (model.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotLatency(float64(time.Since(start).Milliseconds()))
	}()

	var rows []repository.Entry
	err := e.withRetry(ctx, "engine.top_n", func(ctx context.Context) error {
		var err error
		rows, err = e.store.TopN(ctx, session, n)
		return err
	})
	if err != nil {
		return model.Snapshot{}, err
	}

	entries := make([]model.SnapshotEntry, len(rows))
	for i, row := range rows {
		entries[i] = model.SnapshotEntry{
			Rank:          row.Rank,
			ParticipantID: row.ParticipantID,
			DisplayName:   e.names.NameOf(ctx, session, row.ParticipantID),
			Score:         row.Score,
		}
	}

	snap := model.Snapshot{SessionID: session, TopEntries: entries}

	switch {
	case ownScore != nil:
		snap.RequesterScore = *ownScore
	case participantID == "":
		snap.RequesterScore = 0
	default:
		score, err := e.store.ScoreOf(ctx, session, participantID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return model.Snapshot{}, fmt.Errorf("engine.score_of: %w", err)
		}
		snap.RequesterScore = score
	}

	return snap, nil
}

func (e *Engine) isStarted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

// withRetry runs fn with a per-call timeout, retrying transient failures with
// a short backoff. Permanent errors (caller errors, sentinel not-found kinds)
// propagate immediately.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= e.retryAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(e.retryBackoff):
		}
	}
	metrics.RecordErrorByComponent("engine", "retries_exhausted")
	return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, err)
}

// isTransient reports whether an error is worth retrying. Sentinel caller and
// not-found kinds are permanent; everything else (timeouts, store hiccups) is
// treated as transient.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func validateKeys(session, participantID string) error {
	if session == "" {
		return fmt.Errorf("blank session: %w", ErrInvalidInput)
	}
	if participantID == "" {
		return fmt.Errorf("blank participant: %w", ErrInvalidInput)
	}
	return nil
}
