// Package judge defines the contract for turning answer submissions into score deltas.
package judge

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/okian/quizboard/internal/domain/model"
)

// Default judging configuration constants.
const (
	defaultPoints     = 100
	defaultPenalty    = 10
	defaultMinLatency = 5 * time.Millisecond
	defaultMaxLatency = 20 * time.Millisecond
	defaultRandomSeed = 42
)

// Judge decides whether a submitted answer is correct and what delta it earns.
// The engine treats the implementation as a trusted oracle; it never validates
// correctness itself.
type Judge interface {
	// Judge evaluates a submission, honoring ctx for cancellation.
	Judge(ctx context.Context, sub model.Submission) (model.Verdict, error)
}

// Option applies a configuration option to the InMemoryJudge.
type Option func(*InMemoryJudge)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(j *InMemoryJudge) {
		if minLatency > 0 && maxLatency > minLatency {
			j.minLatency = minLatency
			j.maxLatency = maxLatency
		}
	}
}

// WithAnswerKey sets the accepted answer per question id.
func WithAnswerKey(key map[string]string) Option {
	return func(j *InMemoryJudge) {
		j.answerKey = make(map[string]string, len(key))
		for q, a := range key {
			j.answerKey[q] = normalize(a)
		}
	}
}

// WithQuestionPoints sets per-question point values.
func WithQuestionPoints(points map[string]int64, defaultPts int64) Option {
	return func(j *InMemoryJudge) {
		j.questionPoints = make(map[string]int64, len(points))
		for q, p := range points {
			if p > 0 {
				j.questionPoints[q] = p
			}
		}
		if defaultPts > 0 {
			j.defaultPoints = defaultPts
		}
	}
}

// WithWrongAnswerPenalty sets the deduction for incorrect answers.
func WithWrongAnswerPenalty(penalty int64) Option {
	return func(j *InMemoryJudge) {
		if penalty >= 0 {
			j.penalty = penalty
		}
	}
}

// InMemoryJudge implements Judge with a static answer key and simulated latency,
// standing in for the external scoring service.
type InMemoryJudge struct {
	mu             sync.RWMutex
	answerKey      map[string]string
	questionPoints map[string]int64
	defaultPoints  int64
	penalty        int64

	minLatency time.Duration
	maxLatency time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewInMemoryJudge creates a new in-memory judge with configuration options.
func NewInMemoryJudge(opts ...Option) *InMemoryJudge {
	j := &InMemoryJudge{
		answerKey:      make(map[string]string),
		questionPoints: make(map[string]int64),
		defaultPoints:  defaultPoints,
		penalty:        defaultPenalty,
		minLatency:     defaultMinLatency,
		maxLatency:     defaultMaxLatency,
		rng:            rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Judge evaluates the submission against the answer key.
func (j *InMemoryJudge) Judge(ctx context.Context, sub model.Submission) (model.Verdict, error) {
	// Simulate scoring service latency
	j.rngMu.Lock()
	latency := j.minLatency + time.Duration(j.rng.Int63n(int64(j.maxLatency-j.minLatency)))
	j.rngMu.Unlock()
	select {
	case <-ctx.Done():
		return model.Verdict{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	points, ok := j.questionPoints[sub.QuestionID]
	if !ok {
		points = j.defaultPoints
	}

	want, known := j.answerKey[sub.QuestionID]
	if known && normalize(sub.Answer) == want {
		return model.Verdict{Correct: true, Delta: points}, nil
	}
	return model.Verdict{Correct: false, Delta: -j.penalty}, nil
}

// SetAnswer registers or replaces the accepted answer for a question.
func (j *InMemoryJudge) SetAnswer(questionID, answer string) {
	j.mu.Lock()
	j.answerKey[questionID] = normalize(answer)
	j.mu.Unlock()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
