// Package model contains domain values passed between layers.
package model

// ChangeEvent is the fire-and-forget notification emitted after a score change.
// It is not durable; subscribers that miss one recover via a fresh Snapshot.
type ChangeEvent struct {
	SessionID     string
	ParticipantID string
	Score         int64
}

// SnapshotEntry is a single row of a leaderboard snapshot.
type SnapshotEntry struct {
	Rank          int
	ParticipantID string
	DisplayName   string
	Score         int64
}

// Snapshot is a point-in-time, read-only leaderboard projection:
// the top-N rows plus the requesting participant's own score.
type Snapshot struct {
	SessionID      string
	TopEntries     []SnapshotEntry
	RequesterScore int64
}

// Submission is an answer handed to the judging oracle.
type Submission struct {
	SubmissionID  string // unique id for idempotency
	SessionID     string
	ParticipantID string
	DisplayName   string
	QuestionID    string
	Answer        string
}

// Verdict is the judging oracle's output for one submission.
type Verdict struct {
	Correct bool
	Delta   int64
}
