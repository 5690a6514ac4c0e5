package engine

import (
	"time"

	"github.com/okian/quizboard/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSessionTTL sets how long a session survives without writes.
func WithSessionTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.sessionTTL = ttl
		}
	}
}

// WithDefaultTopN sets the leaderboard size used when callers don't specify one.
func WithDefaultTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultTopN = n
		}
	}
}

// WithOpTimeout bounds a single store or registry call.
func WithOpTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.opTimeout = d
		}
	}
}

// WithRetry shapes the transient-failure retry budget.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(e *Engine) {
		if attempts >= 0 {
			e.retryAttempts = attempts
		}
		if backoff > 0 {
			e.retryBackoff = backoff
		}
	}
}

// WithDedupeSize sets the size of the submission idempotency cache.
func WithDedupeSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.dedupeSize = size
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber change event channel depth.
func WithSubscriberBuffer(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.subscriberBuffer = size
		}
	}
}

// WithDispatchShards sets how many dispatchers fan out change events.
func WithDispatchShards(count int) Option {
	return func(e *Engine) {
		if count > 0 {
			e.dispatchShards = count
		}
	}
}

// WithDispatchQueueSize bounds each dispatch shard's queue.
func WithDispatchQueueSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.dispatchQueueSize = size
		}
	}
}

// WithJudgeLatencyRange sets the simulated judging latency range.
func WithJudgeLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(e *Engine) {
		if minLatency > 0 && maxLatency > minLatency {
			e.judgeMinLatency = minLatency
			e.judgeMaxLatency = maxLatency
		}
	}
}

// WithQuestionPoints sets per-question point values and the default.
func WithQuestionPoints(points map[string]int64, defaultPoints int64) Option {
	return func(e *Engine) {
		if points != nil {
			e.questionPoints = points
		}
		if defaultPoints > 0 {
			e.defaultPoints = defaultPoints
		}
	}
}

// WithWrongAnswerPenalty sets the deduction for incorrect answers.
func WithWrongAnswerPenalty(penalty int64) Option {
	return func(e *Engine) {
		if penalty >= 0 {
			e.wrongAnswerPenalty = penalty
		}
	}
}

// WithAnswerKey sets the judging oracle's accepted answers.
func WithAnswerKey(key map[string]string) Option {
	return func(e *Engine) {
		if key != nil {
			e.answerKey = key
		}
	}
}
