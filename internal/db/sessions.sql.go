package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const sessionColumns = `id, student_id, counsellor_id, kind, status, room_url, created_at, ended_at`

const createSession = `-- name: CreateSession :one
INSERT INTO counselling_sessions (id, student_id, counsellor_id, kind, room_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + sessionColumns

type CreateSessionParams struct {
	ID           uuid.UUID
	StudentID    uuid.UUID
	CounsellorID uuid.UUID
	Kind         SessionKind
	RoomUrl      sql.NullString
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (CounsellingSession, error) {
	row := q.queryRow(ctx, createSession, arg.ID, arg.StudentID, arg.CounsellorID, arg.Kind, arg.RoomUrl)
	return scanSession(row)
}

const getActiveSession = `-- name: GetActiveSession :one
SELECT ` + sessionColumns + `
FROM counselling_sessions
WHERE student_id = $1 AND counsellor_id = $2 AND kind = $3 AND status = 'active'
`

type GetActiveSessionParams struct {
	StudentID    uuid.UUID
	CounsellorID uuid.UUID
	Kind         SessionKind
}

func (q *Queries) GetActiveSession(ctx context.Context, arg GetActiveSessionParams) (CounsellingSession, error) {
	return scanSession(q.queryRow(ctx, getActiveSession, arg.StudentID, arg.CounsellorID, arg.Kind))
}

const getSessionByID = `-- name: GetSessionByID :one
SELECT ` + sessionColumns + `
FROM counselling_sessions
WHERE id = $1
`

func (q *Queries) GetSessionByID(ctx context.Context, id uuid.UUID) (CounsellingSession, error) {
	return scanSession(q.queryRow(ctx, getSessionByID, id))
}

const listSessionsForUser = `-- name: ListSessionsForUser :many
SELECT s.id, s.student_id, s.counsellor_id, s.kind, s.status, s.room_url, s.created_at, s.ended_at,
       sp.full_name AS student_name,
       cp.full_name AS counsellor_name
FROM counselling_sessions s
JOIN profiles sp ON sp.user_id = s.student_id
JOIN profiles cp ON cp.user_id = s.counsellor_id
WHERE s.student_id = $1 OR s.counsellor_id = $1
ORDER BY s.created_at DESC
`

func (q *Queries) ListSessionsForUser(ctx context.Context, userID uuid.UUID) ([]ListSessionsForUserRow, error) {
	rows, err := q.query(ctx, listSessionsForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListSessionsForUserRow
	for rows.Next() {
		var i ListSessionsForUserRow
		if err := rows.Scan(
			&i.ID, &i.StudentID, &i.CounsellorID, &i.Kind, &i.Status, &i.RoomUrl,
			&i.CreatedAt, &i.EndedAt, &i.StudentName, &i.CounsellorName,
		); err != nil {
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

const endSession = `-- name: EndSession :one
UPDATE counselling_sessions
SET status = 'ended', ended_at = COALESCE(ended_at, now())
WHERE id = $1
RETURNING ` + sessionColumns

func (q *Queries) EndSession(ctx context.Context, id uuid.UUID) (CounsellingSession, error) {
	return scanSession(q.queryRow(ctx, endSession, id))
}

func scanSession(row scanner) (CounsellingSession, error) {
	var i CounsellingSession
	err := row.Scan(
		&i.ID, &i.StudentID, &i.CounsellorID, &i.Kind, &i.Status,
		&i.RoomUrl, &i.CreatedAt, &i.EndedAt,
	)
	return i, err
}
