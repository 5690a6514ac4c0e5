package repository

import "errors"

// Sentinel kinds for ranked store errors.
var (
	ErrNotFound     = errors.New("participant not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
