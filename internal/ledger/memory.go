package ledger

import (
	"context"
	"sync"
	"time"

	"proctord/internal/domain"
)

// MemoryStore keeps the ledger in RAM. It backs tests and the scenario
// simulator; production uses the postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions []domain.ExamSession
	events   []domain.ViolationEvent
	nextSess int64
	nextEv   int64

	// Now is the injectable clock; defaults to time.Now.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextSess: 1, nextEv: 1, Now: time.Now}
}

func (m *MemoryStore) StartSession(ctx context.Context, userID, examID int64) (*domain.ExamSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.insertSession(userID, examID)
	out := *sess
	return &out, m.countSince(sess), nil
}

func (m *MemoryStore) RecordViolation(ctx context.Context, userID, examID int64, eventType domain.EventType, details string) (*domain.ExamSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.openSession(userID, examID)
	if sess == nil {
		sess = m.insertSession(userID, examID)
	}

	m.events = append(m.events, domain.ViolationEvent{
		EventID:   m.nextEv,
		UserID:    userID,
		ExamID:    examID,
		EventType: eventType,
		EventTime: m.Now(),
		Details:   details,
	})
	m.nextEv++

	count := m.countSince(sess)
	if count >= domain.ViolationThreshold && sess.EndedAt == nil {
		ended := m.Now()
		sess.EndedAt = &ended
		sess.EndedReason = domain.EndedReasonTerminated
	}
	out := *sess
	return &out, count, nil
}

// Session returns a copy of the session row by id, for assertions.
func (m *MemoryStore) Session(id int64) (domain.ExamSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].SessionID == id {
			return m.sessions[i], true
		}
	}
	return domain.ExamSession{}, false
}

// Events returns a copy of all recorded events, for assertions.
func (m *MemoryStore) Events() []domain.ViolationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ViolationEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryStore) insertSession(userID, examID int64) *domain.ExamSession {
	m.sessions = append(m.sessions, domain.ExamSession{
		SessionID: m.nextSess,
		UserID:    userID,
		ExamID:    examID,
		StartedAt: m.Now(),
	})
	m.nextSess++
	return &m.sessions[len(m.sessions)-1]
}

// openSession picks the most recently started open session, matching the
// postgres store's lookup order.
func (m *MemoryStore) openSession(userID, examID int64) *domain.ExamSession {
	var found *domain.ExamSession
	for i := range m.sessions {
		s := &m.sessions[i]
		if s.UserID == userID && s.ExamID == examID && s.EndedAt == nil {
			if found == nil || s.StartedAt.After(found.StartedAt) ||
				(s.StartedAt.Equal(found.StartedAt) && s.SessionID > found.SessionID) {
				found = s
			}
		}
	}
	return found
}

func (m *MemoryStore) countSince(sess *domain.ExamSession) int {
	n := 0
	for i := range m.events {
		ev := &m.events[i]
		if ev.UserID == sess.UserID && ev.ExamID == sess.ExamID && !ev.EventTime.Before(sess.StartedAt) {
			n++
		}
	}
	return n
}
