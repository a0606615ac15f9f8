package domain

import "time"

// Reasons a session can end. While ended_at is null the session is active.
const (
	EndedReasonTerminated = "terminated"
	EndedReasonCompleted  = "completed"
)

// ExamSession is one monitored exam attempt. Creating a session never
// mutates an existing open one; ending a session is the only permitted
// mutation of an existing row.
type ExamSession struct {
	SessionID   int64      `json:"session_id"`
	UserID      int64      `json:"user_id"`
	ExamID      int64      `json:"exam_id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	EndedReason string     `json:"ended_reason,omitempty"`
}

// Active reports whether the session is still open.
func (s *ExamSession) Active() bool { return s.EndedAt == nil }

// ViolationEvent is an append-only record of one confirmed violation.
// Events carry no session foreign key; they are attributed to the session
// whose started_at they fall at or after.
type ViolationEvent struct {
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	ExamID    int64     `json:"exam_id"`
	EventType EventType `json:"event_type"`
	EventTime time.Time `json:"event_time"`
	Details   string    `json:"details,omitempty"`
}

// Outcome is the ledger's answer to one processed event. The client must
// obey Action even if its local state disagrees.
type Outcome struct {
	Violations int    `json:"violations"`
	Action     Action `json:"action"`
	Message    string `json:"message"`
	SessionID  int64  `json:"session_id"`
}

// Result statuses accepted by the scoring collaborator.
const (
	StatusCompleted = "completed"
	StatusCheated   = "cheated"
)

// ExamResult is the submission handed to the scoring collaborator when an
// exam finishes. Forced termination always carries StatusCheated and a
// zero score.
type ExamResult struct {
	UserID         int64  `json:"user_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	TimeTaken      int    `json:"time_taken"`
	Status         string `json:"status"`
}
