package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// StartSessionParams identifies the pair and the kind of session requested.
// VideoBaseURL is prefixed to the session id to build the room link for video
// sessions.
type StartSessionParams struct {
	StudentID    uuid.UUID
	CounsellorID uuid.UUID
	Kind         db.SessionKind
	VideoBaseURL string
}

// SendMessageParams is one chat message from a participant.
type SendMessageParams struct {
	SessionID uuid.UUID
	SenderID  uuid.UUID
	Body      string
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrNotCounsellor is returned when a session is requested with a user
	// that is not a counsellor.
	ErrNotCounsellor = errors.New("store: user is not a counsellor")

	// ErrNotParticipant is returned when the caller is neither the student
	// nor the counsellor of a session.
	ErrNotParticipant = errors.New("store: user is not a participant of the session")

	// ErrSessionEnded is returned when writing to a session that has ended.
	ErrSessionEnded = errors.New("store: session has ended")
)

// startSessionAttempts bounds retries when two concurrent requests race to
// create the same session.
const startSessionAttempts = 3

// ─── METHODS ─────────────────────────────────────────────────────────────────

// StartSession returns the active session of the requested kind between the
// pair, creating it if none exists. created reports which path was taken.
//
// Two concurrent requests either serialize or one of them trips the partial
// unique index on active sessions; both cases are retried, and the retry
// finds the row the winner committed.
func (s *Store) StartSession(ctx context.Context, p StartSessionParams) (db.CounsellingSession, bool, error) {
	var lastErr error
	for attempt := 0; attempt < startSessionAttempts; attempt++ {
		session, created, err := s.startSessionOnce(ctx, p)
		if err == nil {
			return session, created, nil
		}
		if errors.Is(err, ErrNotCounsellor) {
			return db.CounsellingSession{}, false, ErrNotCounsellor
		}
		if !isPQCode(err, pqSerializationFailure) && !isPQCode(err, pqUniqueViolation) {
			return db.CounsellingSession{}, false, err
		}
		lastErr = err
	}
	return db.CounsellingSession{}, false, fmt.Errorf("StartSession: gave up after %d attempts: %w", startSessionAttempts, lastErr)
}

func (s *Store) startSessionOnce(ctx context.Context, p StartSessionParams) (db.CounsellingSession, bool, error) {
	var (
		session db.CounsellingSession
		created bool
	)

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		counsellor, err := q.GetUserByID(ctx, p.CounsellorID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotCounsellor
		}
		if err != nil {
			return fmt.Errorf("StartSession: get counsellor: %w", err)
		}
		if counsellor.Role != db.UserRoleCounsellor {
			return ErrNotCounsellor
		}

		existing, err := q.GetActiveSession(ctx, db.GetActiveSessionParams{
			StudentID:    p.StudentID,
			CounsellorID: p.CounsellorID,
			Kind:         p.Kind,
		})
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("StartSession: get active session: %w", err)
		}

		id := uuid.New()
		row, err := q.CreateSession(ctx, db.CreateSessionParams{
			ID:           id,
			StudentID:    p.StudentID,
			CounsellorID: p.CounsellorID,
			Kind:         p.Kind,
			RoomUrl:      roomURL(p.Kind, p.VideoBaseURL, id),
		})
		if err != nil {
			return fmt.Errorf("StartSession: create session: %w", err)
		}
		session, created = row, true
		return nil
	})
	if err != nil {
		return db.CounsellingSession{}, false, err
	}
	return session, created, nil
}

// roomURL is only set for video sessions.
func roomURL(kind db.SessionKind, base string, id uuid.UUID) sql.NullString {
	if kind != db.SessionKindVideo || base == "" {
		return sql.NullString{}
	}
	return sql.NullString{
		String: strings.TrimRight(base, "/") + "/" + id.String(),
		Valid:  true,
	}
}

// ParticipantSession loads a session and checks userID takes part in it.
// A missing session is reported as sql.ErrNoRows.
func (s *Store) ParticipantSession(ctx context.Context, sessionID, userID uuid.UUID) (db.CounsellingSession, error) {
	session, err := s.q.GetSessionByID(ctx, sessionID)
	if err != nil {
		return db.CounsellingSession{}, err
	}
	if !session.IsParticipant(userID) {
		return db.CounsellingSession{}, ErrNotParticipant
	}
	return session, nil
}

// EndSession closes a session on behalf of a participant. Ending an already
// ended session returns it unchanged.
func (s *Store) EndSession(ctx context.Context, sessionID, userID uuid.UUID) (db.CounsellingSession, error) {
	session, err := s.ParticipantSession(ctx, sessionID, userID)
	if err != nil {
		return db.CounsellingSession{}, err
	}
	if session.Status == db.SessionStatusEnded {
		return session, nil
	}
	ended, err := s.q.EndSession(ctx, sessionID)
	if err != nil {
		return db.CounsellingSession{}, fmt.Errorf("EndSession: %w", err)
	}
	return ended, nil
}

// SendMessage persists a chat message after checking the sender takes part
// in the session and the session is still active. Publishing to live
// subscribers is the caller's job.
func (s *Store) SendMessage(ctx context.Context, p SendMessageParams) (db.Message, error) {
	var msg db.Message

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		session, err := q.GetSessionByID(ctx, p.SessionID)
		if err != nil {
			return err
		}
		if !session.IsParticipant(p.SenderID) {
			return ErrNotParticipant
		}
		if session.Status != db.SessionStatusActive {
			return ErrSessionEnded
		}

		row, err := q.InsertMessage(ctx, db.InsertMessageParams{
			SessionID: p.SessionID,
			SenderID:  p.SenderID,
			Body:      p.Body,
		})
		if err != nil {
			return fmt.Errorf("SendMessage: insert: %w", err)
		}
		msg = row
		return nil
	})

	switch {
	case errors.Is(err, ErrNotParticipant):
		return db.Message{}, ErrNotParticipant
	case errors.Is(err, ErrSessionEnded):
		return db.Message{}, ErrSessionEnded
	case errors.Is(err, sql.ErrNoRows):
		return db.Message{}, sql.ErrNoRows
	case err != nil:
		return db.Message{}, err
	}
	return msg, nil
}
