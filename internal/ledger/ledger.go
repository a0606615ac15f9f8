// Package ledger owns the authoritative escalation decision. It never
// trusts a client-supplied count: every directive is derived from the
// recomputed, persisted violation count for the current session.
package ledger

import (
	"context"

	"proctord/internal/domain"
)

// Store is the persistence contract the service needs. Implementations
// must apply each call atomically and serialize calls per (user, exam).
type Store interface {
	// StartSession creates a fresh session row and returns it together
	// with the violation count recomputed since its start.
	StartSession(ctx context.Context, userID, examID int64) (*domain.ExamSession, int, error)

	// RecordViolation appends one event, recomputes the count for the
	// open session (creating one if needed), and ends the session when
	// the threshold is reached. All of it in one atomic unit.
	RecordViolation(ctx context.Context, userID, examID int64, eventType domain.EventType, details string) (*domain.ExamSession, int, error)
}

// Service processes reported events into action directives.
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Process handles one reported event for an authenticated (user, exam)
// pair. start_session opens a clean session without writing a violation;
// every other type appends to the ledger. The directive is ok at count 0,
// warn at 1 or 2, end at 3 or more.
func (s *Service) Process(ctx context.Context, userID, examID int64, eventType domain.EventType, details string) (domain.Outcome, error) {
	if eventType == domain.EventStartSession {
		sess, count, err := s.store.StartSession(ctx, userID, examID)
		if err != nil {
			return domain.Outcome{}, err
		}
		return domain.Outcome{
			Violations: count,
			Action:     domain.ActionForCount(count),
			Message:    "Session started",
			SessionID:  sess.SessionID,
		}, nil
	}

	sess, count, err := s.store.RecordViolation(ctx, userID, examID, eventType, details)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{
		Violations: count,
		Action:     domain.ActionForCount(count),
		Message:    violationMessage(count),
		SessionID:  sess.SessionID,
	}, nil
}

func violationMessage(count int) string {
	switch {
	case count >= domain.ViolationThreshold:
		return "Exam terminated due to multiple violations"
	case count == domain.ViolationThreshold-1:
		return "Final Warning: One more violation will terminate the exam"
	case count >= 1:
		return "Warning: Next violation will escalate"
	default:
		return "Violation logged"
	}
}
