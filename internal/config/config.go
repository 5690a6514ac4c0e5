// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load(ctx) layers file/env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SessionTTLSeconds bounds how long a session survives without writes.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// DefaultTopN is the leaderboard size returned when the caller does not ask for one.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxLeaderboardLimit caps GET leaderboard ?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// StoreOpTimeoutMS bounds a single ranked store or registry call.
	StoreOpTimeoutMS int `koanf:"store_op_timeout_ms"`

	// RetryAttempts and RetryBackoffMS shape the engine's transient-failure retry.
	RetryAttempts  int `koanf:"retry_attempts"`
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// SubscriberBuffer is the per-subscriber change event channel depth.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// DispatchShards sets how many dispatcher goroutines fan out change events.
	DispatchShards int `koanf:"dispatch_shards"`

	// DispatchQueueSize bounds each dispatch shard's queue.
	DispatchQueueSize int `koanf:"dispatch_queue_size"`

	// DedupeSize sets the size of the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// JudgeLatencyMinMS and JudgeLatencyMaxMS simulate scoring service latency bounds.
	JudgeLatencyMinMS int `koanf:"judge_latency_min_ms"`
	JudgeLatencyMaxMS int `koanf:"judge_latency_max_ms"`

	// DefaultPoints is awarded for a correct answer to an unconfigured question.
	DefaultPoints int64 `koanf:"default_points"`

	// WrongAnswerPenalty is subtracted for an incorrect answer.
	WrongAnswerPenalty int64 `koanf:"wrong_answer_penalty"`

	// QuestionPoints maps question ids to their point values.
	QuestionPoints map[string]int64 `koanf:"question_points"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		SessionTTLSeconds:   1800,
		DefaultTopN:         20,
		MaxLeaderboardLimit: 100,
		StoreOpTimeoutMS:    250,
		RetryAttempts:       3,
		RetryBackoffMS:      25,
		SubscriberBuffer:    16,
		DispatchShards:      4,
		DispatchQueueSize:   1024,
		DedupeSize:          50_000,
		JudgeLatencyMinMS:   5,
		JudgeLatencyMaxMS:   20,
		DefaultPoints:       100,
		WrongAnswerPenalty:  10,
		QuestionPoints:      map[string]int64{},
	}
}
