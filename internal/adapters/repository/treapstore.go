package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/quizboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation, one board per session.
//
// Ordering: score DESC, then join sequence ASC. We implement a BST comparator
// where "less" means ranks earlier (i.e., higher score ranks earlier), so
// in-order traversal produces the leaderboard from best to worst. The join
// sequence is assigned on first EnsureParticipant and never changes, which
// keeps tie ordering stable across score recomputation.

// entryRec stores a participant's score plus its immutable join sequence.
type entryRec struct {
	score   int64
	joinSeq uint64
}

// treap node
type node struct {
	id    string
	score int64
	seq   uint64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aSeq) ranks earlier than (bScore, bSeq).
func less(aScore int64, aSeq uint64, bScore int64, bSeq uint64) bool {
	if aScore != bScore {
		return aScore > bScore // higher score ranks earlier
	}
	return aSeq < bSeq // tie-breaker: earliest join wins
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n, in *node) *node {
	if n == nil {
		in.left, in.right = nil, nil
		in.size = 1
		return in
	}
	if less(in.score, in.seq, n.score, n.seq) {
		n.left = insert(n.left, in)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, in)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, score int64, seq uint64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && seq == n.seq {
		// Merge children by rotating the higher priority child up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, score, seq)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, score, seq)
		}
	} else if less(score, seq, n.score, n.seq) {
		n.left = deleteNode(n.left, score, seq)
	} else {
		n.right = deleteNode(n.right, score, seq)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order (best first).
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{ParticipantID: n.id, Score: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// rankIn returns the 1-based rank of (score, seq), or 0 if absent.
func rankIn(n *node, score int64, seq uint64) int {
	rank := 0
	for n != nil {
		switch {
		case score == n.score && seq == n.seq:
			return rank + nsize(n.left) + 1
		case less(score, seq, n.score, n.seq):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// board holds one session's ranked state behind its own lock, so sessions
// never contend with each other.
type board struct {
	mu        sync.RWMutex
	root      *node
	byID      map[string]entryRec
	nodes     map[string]*node
	nextSeq   uint64
	expiresAt time.Time
}

func (b *board) expired(now time.Time) bool {
	return !b.expiresAt.IsZero() && now.After(b.expiresAt)
}

// TreapStore implements Store with one treap per session and TTL-driven purge.
type TreapStore struct {
	mu     sync.RWMutex
	boards map[string]*board

	defaultTTL    time.Duration
	sweepInterval time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store and starts its expiry sweeper.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		boards:        make(map[string]*board),
		defaultTTL:    30 * time.Minute,
		sweepInterval: 10 * time.Second,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // treap priorities, not security
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startSweeper(ctx)

	return s
}

// Close stops the expiry sweeper.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *TreapStore) priority() uint64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Uint64()
}

// getBoard returns the session's board, treating an expired one as absent.
// With create set, an absent or expired board is replaced by a fresh one.
func (s *TreapStore) getBoard(session string, create bool) *board {
	now := time.Now()

	s.mu.RLock()
	b, ok := s.boards[session]
	s.mu.RUnlock()
	if ok && !b.expired(now) {
		return b
	}
	if !create {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.boards[session]; ok && !b.expired(now) {
		return b
	}
	b = &board{
		byID:      make(map[string]entryRec),
		nodes:     make(map[string]*node),
		expiresAt: now.Add(s.defaultTTL),
	}
	s.boards[session] = b
	return b
}

// EnsureParticipant implements Store.EnsureParticipant in O(log n) expected time.
func (s *TreapStore) EnsureParticipant(ctx context.Context, session, participantID string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	b := s.getBoard(session, true)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byID[participantID]; ok {
		return nil
	}
	seq := b.nextSeq
	b.nextSeq++
	b.byID[participantID] = entryRec{score: 0, joinSeq: seq}
	n := &node{id: participantID, score: 0, seq: seq, prio: s.priority()}
	b.nodes[participantID] = n
	b.root = insert(b.root, n)
	return nil
}

// ApplyDelta implements Store.ApplyDelta in O(log n) expected time.
func (s *TreapStore) ApplyDelta(ctx context.Context, session, participantID string, delta int64) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	b := s.getBoard(session, true)

	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.byID[participantID]
	if !ok {
		// Entry created lazily so the contract stays total; the engine
		// normally ensures the participant first.
		rec = entryRec{joinSeq: b.nextSeq}
		b.nextSeq++
		n := &node{id: participantID, score: delta, seq: rec.joinSeq, prio: s.priority()}
		b.nodes[participantID] = n
		rec.score = delta
		b.byID[participantID] = rec
		b.root = insert(b.root, n)
		return delta, nil
	}

	b.root = deleteNode(b.root, rec.score, rec.joinSeq)
	rec.score += delta
	b.byID[participantID] = rec
	n := b.nodes[participantID]
	n.score = rec.score
	b.root = insert(b.root, n)
	return rec.score, nil
}

// TopN returns the top N entries ordered by score desc, join order asc.
func (s *TreapStore) TopN(ctx context.Context, session string, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	b := s.getBoard(session, false)
	if b == nil {
		return []Entry{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, n)
	collectTopN(b.root, n, &out)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// ScoreOf returns the participant's current score.
func (s *TreapStore) ScoreOf(ctx context.Context, session, participantID string) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	b := s.getBoard(session, false)
	if b == nil {
		return 0, ErrNotFound
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.byID[participantID]
	if !ok {
		return 0, ErrNotFound
	}
	return rec.score, nil
}

// RankOf returns the participant's current rank and score in O(log n).
func (s *TreapStore) RankOf(ctx context.Context, session, participantID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	b := s.getBoard(session, false)
	if b == nil {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.byID[participantID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	rank := rankIn(b.root, rec.score, rec.joinSeq)
	return Entry{Rank: rank, ParticipantID: participantID, Score: rec.score}, nil
}

// Expire (re)sets the session's expiry horizon.
func (s *TreapStore) Expire(ctx context.Context, session string, ttl time.Duration) error {
	b := s.getBoard(session, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.expiresAt = time.Now().Add(ttl)
	b.mu.Unlock()
	return nil
}

// Count returns the number of participants on the session's board.
func (s *TreapStore) Count(ctx context.Context, session string) int {
	b := s.getBoard(session, false)
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

// Sessions returns the number of live sessions.
func (s *TreapStore) Sessions(ctx context.Context) int {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := 0
	for _, b := range s.boards {
		if !b.expired(now) {
			live++
		}
	}
	return live
}

// startSweeper starts a background goroutine that purges expired sessions.
func (s *TreapStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep removes boards whose expiry horizon has passed and refreshes gauges.
func (s *TreapStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	expired := 0
	participants := 0
	for session, b := range s.boards {
		if b.expired(now) {
			delete(s.boards, session)
			expired++
			continue
		}
		b.mu.RLock()
		participants += len(b.byID)
		b.mu.RUnlock()
	}
	live := len(s.boards)
	s.mu.Unlock()

	if expired > 0 {
		metrics.RecordSessionsExpired(expired)
	}
	metrics.UpdateSessionsActive(live)
	metrics.UpdateParticipantsTotal(participants)
}
