package config

import (
	"errors"
	"fmt"
)

// Sentinel kinds for configuration errors.
var (
	ErrMissingAddr         = errors.New("addr must not be empty")
	ErrInvalidTTL          = errors.New("session_ttl_seconds must be positive")
	ErrInvalidShards       = errors.New("dispatch_shards must be positive")
	ErrInvalidLatencyRange = errors.New("judge latency range is inverted")
)

// Wrap annotates an external error with the failing operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind annotates a sentinel error with the failing operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
