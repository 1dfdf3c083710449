package db

import (
	"context"

	"github.com/google/uuid"
)

const insertMessage = `-- name: InsertMessage :one
INSERT INTO messages (session_id, sender_id, body)
VALUES ($1, $2, $3)
RETURNING id, session_id, sender_id, body, created_at
`

type InsertMessageParams struct {
	SessionID uuid.UUID
	SenderID  uuid.UUID
	Body      string
}

func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) (Message, error) {
	row := q.queryRow(ctx, insertMessage, arg.SessionID, arg.SenderID, arg.Body)
	var i Message
	err := row.Scan(&i.ID, &i.SessionID, &i.SenderID, &i.Body, &i.CreatedAt)
	return i, err
}

const getMessageByID = `-- name: GetMessageByID :one
SELECT id, session_id, sender_id, body, created_at
FROM messages
WHERE id = $1
`

func (q *Queries) GetMessageByID(ctx context.Context, id uuid.UUID) (Message, error) {
	row := q.queryRow(ctx, getMessageByID, id)
	var i Message
	err := row.Scan(&i.ID, &i.SessionID, &i.SenderID, &i.Body, &i.CreatedAt)
	return i, err
}

// The inner query takes the newest rows; the outer one puts them back in
// chronological order for display.
const listMessages = `-- name: ListMessages :many
SELECT id, session_id, sender_id, body, created_at FROM (
    SELECT id, session_id, sender_id, body, created_at
    FROM messages
    WHERE session_id = $1
    ORDER BY created_at DESC
    LIMIT $2
) recent
ORDER BY created_at ASC
`

type ListMessagesParams struct {
	SessionID uuid.UUID
	Limit     int32
}

func (q *Queries) ListMessages(ctx context.Context, arg ListMessagesParams) ([]Message, error) {
	rows, err := q.query(ctx, listMessages, arg.SessionID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(&i.ID, &i.SessionID, &i.SenderID, &i.Body, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const notify = `-- name: Notify :exec
SELECT pg_notify($1, $2)
`

// Notify publishes payload on a Postgres LISTEN/NOTIFY channel. Inside a
// transaction the notification is delivered on commit.
func (q *Queries) Notify(ctx context.Context, channel, payload string) error {
	_, err := q.exec(ctx, notify, channel, payload)
	return err
}

// ─── CONTACT ──────────────────────────────────────────────────────────────────

const insertContactMessage = `-- name: InsertContactMessage :one
INSERT INTO contact_messages (name, email, subject, message)
VALUES ($1, $2, $3, $4)
RETURNING id, name, email, subject, message, created_at
`

type InsertContactMessageParams struct {
	Name    string
	Email   string
	Subject string
	Message string
}

func (q *Queries) InsertContactMessage(ctx context.Context, arg InsertContactMessageParams) (ContactMessage, error) {
	row := q.queryRow(ctx, insertContactMessage, arg.Name, arg.Email, arg.Subject, arg.Message)
	var i ContactMessage
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Subject, &i.Message, &i.CreatedAt)
	return i, err
}

// allQueries is the set Prepare validates at startup.
var allQueries = map[string]string{
	"CreateUser":                createUser,
	"GetUserByEmail":            getUserByEmail,
	"GetUserByID":               getUserByID,
	"UpdateUserPassword":        updateUserPassword,
	"CreateProfile":             createProfile,
	"GetProfile":                getProfile,
	"UpdateProfile":             updateProfile,
	"ListCounsellors":           listCounsellors,
	"InsertAssessment":          insertAssessment,
	"GetAssessmentByID":         getAssessmentByID,
	"GetLatestAssessmentByUser": getLatestAssessmentByUser,
	"ListAssessmentsByUser":     listAssessmentsByUser,
	"ListPendingFollowUps":      listPendingFollowUps,
	"SetAssessmentBriefing":     setAssessmentBriefing,
	"SetFollowUpError":          setFollowUpError,
	"CreateSession":             createSession,
	"GetActiveSession":          getActiveSession,
	"GetSessionByID":            getSessionByID,
	"ListSessionsForUser":       listSessionsForUser,
	"EndSession":                endSession,
	"InsertMessage":             insertMessage,
	"GetMessageByID":            getMessageByID,
	"ListMessages":              listMessages,
	"Notify":                    notify,
	"InsertContactMessage":      insertContactMessage,
}
