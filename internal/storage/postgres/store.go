package postgres

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"

	"proctord/internal/domain"
)

var ErrUserNotFound = errors.New("postgres: user not found")

// Store holds the authoritative session and violation ledger.
//
// Every operation runs inside one transaction and takes a per-(user, exam)
// advisory lock first, so the insert + recount + maybe-terminate sequence
// is serialized per key. Counts are therefore monotonic and a third
// violation can never commit without the session being marked terminated.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store { return &Store{db: db} }

// StartSession always inserts a fresh session row, even when one is already
// open; older open sessions are left untouched. The returned count is
// recomputed from persisted events rather than assumed zero, to tolerate
// clock skew and races.
func (s *Store) StartSession(ctx context.Context, userID, examID int64) (*domain.ExamSession, int, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockKey(ctx, tx, userID, examID); err != nil {
		return nil, 0, err
	}

	sess, err := insertSession(ctx, tx, userID, examID)
	if err != nil {
		return nil, 0, err
	}
	count, err := countSince(ctx, tx, sess)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return sess, count, nil
}

// RecordViolation appends one violation event, recomputes the count for the
// open session's time window, and atomically ends the session once the
// threshold is reached. If no open session exists one is created first, so
// a client that lost its session reference is never stuck.
func (s *Store) RecordViolation(ctx context.Context, userID, examID int64, eventType domain.EventType, details string) (*domain.ExamSession, int, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockKey(ctx, tx, userID, examID); err != nil {
		return nil, 0, err
	}

	sess, err := openSession(ctx, tx, userID, examID)
	if err != nil {
		return nil, 0, err
	}
	if sess == nil {
		sess, err = insertSession(ctx, tx, userID, examID)
		if err != nil {
			return nil, 0, err
		}
	}

	var detailsArg any
	if details != "" {
		detailsArg = details
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO exam_violations (user_id, exam_id, event_type, event_time, details)
		 VALUES ($1, $2, $3, now(), $4)`,
		userID, examID, string(eventType), detailsArg)
	if err != nil {
		return nil, 0, fmt.Errorf("insert violation: %w", err)
	}

	count, err := countSince(ctx, tx, sess)
	if err != nil {
		return nil, 0, err
	}
	// The count query runs after the insert in the same transaction, so it
	// must reflect at least this event. Anything else is a consistency
	// fault and the request aborts.
	if count < 1 {
		return nil, 0, fmt.Errorf("recount: got %d violations after insert", count)
	}

	if count >= domain.ViolationThreshold {
		_, err = tx.Exec(ctx,
			`UPDATE exam_sessions
			 SET ended_at = now(), ended_reason = $1
			 WHERE session_id = $2 AND ended_at IS NULL`,
			domain.EndedReasonTerminated, sess.SessionID)
		if err != nil {
			return nil, 0, fmt.Errorf("terminate session: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return sess, count, nil
}

// SaveResult stores the final exam result and closes any session still open
// for the user and exam. Completed submissions close it as completed;
// cheated ones as terminated, covering the offline-fallback path where the
// client terminated without a server directive.
func (s *Store) SaveResult(ctx context.Context, examID int64, res domain.ExamResult) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockKey(ctx, tx, res.UserID, examID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO results (user_id, score, total_questions, time_taken, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		res.UserID, res.Score, res.TotalQuestions, res.TimeTaken, res.Status)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	reason := domain.EndedReasonCompleted
	if res.Status == domain.StatusCheated {
		reason = domain.EndedReasonTerminated
	}
	_, err = tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET ended_at = now(), ended_reason = $1
		 WHERE user_id = $2 AND exam_id = $3 AND ended_at IS NULL`,
		reason, res.UserID, examID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UserByEmail looks up credentials for login. Email is unique.
func (s *Store) UserByEmail(ctx context.Context, email string) (int64, string, error) {
	var id int64
	var hash string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT user_id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", ErrUserNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("user lookup: %w", err)
	}
	return id, hash, nil
}

// lockKey serializes all ledger writes for one (user, exam) pair for the
// remainder of the transaction.
func lockKey(ctx context.Context, tx pgx.Tx, userID, examID int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(userID, examID))
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// advisoryKey folds the pair into the single bigint the lock call takes.
// The two-argument lock form only accepts int32 and would truncate the
// BIGSERIAL ids.
func advisoryKey(userID, examID int64) int64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(userID))
	binary.BigEndian.PutUint64(buf[8:], uint64(examID))
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

func insertSession(ctx context.Context, tx pgx.Tx, userID, examID int64) (*domain.ExamSession, error) {
	sess := &domain.ExamSession{UserID: userID, ExamID: examID}
	err := tx.QueryRow(ctx,
		`INSERT INTO exam_sessions (user_id, exam_id, started_at)
		 VALUES ($1, $2, now())
		 RETURNING session_id, started_at`,
		userID, examID).Scan(&sess.SessionID, &sess.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// openSession returns the most recently started open session, or nil.
func openSession(ctx context.Context, tx pgx.Tx, userID, examID int64) (*domain.ExamSession, error) {
	sess := &domain.ExamSession{UserID: userID, ExamID: examID}
	err := tx.QueryRow(ctx,
		`SELECT session_id, started_at FROM exam_sessions
		 WHERE user_id = $1 AND exam_id = $2 AND ended_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`,
		userID, examID).Scan(&sess.SessionID, &sess.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return sess, nil
}

// countSince recomputes the violation count attributed to sess: events for
// the same (user, exam) at or after the session's start.
func countSince(ctx context.Context, tx pgx.Tx, sess *domain.ExamSession) (int, error) {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_violations
		 WHERE user_id = $1 AND exam_id = $2 AND event_time >= $3`,
		sess.UserID, sess.ExamID, sess.StartedAt).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count violations: %w", err)
	}
	return n, nil
}
