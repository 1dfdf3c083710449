package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const assessmentColumns = `id, user_id, total_score, risk_level, answers, recommendations, detailed_advice, briefing, followup_status, followup_error, created_at`

const insertAssessment = `-- name: InsertAssessment :one
INSERT INTO assessments (user_id, total_score, risk_level, answers, recommendations, detailed_advice)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + assessmentColumns

type InsertAssessmentParams struct {
	UserID          uuid.UUID
	TotalScore      int16
	RiskLevel       RiskLevel
	Answers         json.RawMessage
	Recommendations string
	DetailedAdvice  pqtype.NullRawMessage
}

func (q *Queries) InsertAssessment(ctx context.Context, arg InsertAssessmentParams) (Assessment, error) {
	row := q.queryRow(ctx, insertAssessment,
		arg.UserID,
		arg.TotalScore,
		arg.RiskLevel,
		arg.Answers,
		arg.Recommendations,
		arg.DetailedAdvice,
	)
	return scanAssessment(row)
}

const getAssessmentByID = `-- name: GetAssessmentByID :one
SELECT ` + assessmentColumns + `
FROM assessments
WHERE id = $1
`

func (q *Queries) GetAssessmentByID(ctx context.Context, id uuid.UUID) (Assessment, error) {
	return scanAssessment(q.queryRow(ctx, getAssessmentByID, id))
}

const getLatestAssessmentByUser = `-- name: GetLatestAssessmentByUser :one
SELECT ` + assessmentColumns + `
FROM assessments
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestAssessmentByUser(ctx context.Context, userID uuid.UUID) (Assessment, error) {
	return scanAssessment(q.queryRow(ctx, getLatestAssessmentByUser, userID))
}

const listAssessmentsByUser = `-- name: ListAssessmentsByUser :many
SELECT ` + assessmentColumns + `
FROM assessments
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`

type ListAssessmentsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
}

func (q *Queries) ListAssessmentsByUser(ctx context.Context, arg ListAssessmentsByUserParams) ([]Assessment, error) {
	rows, err := q.query(ctx, listAssessmentsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	return collectAssessments(rows)
}

const listPendingFollowUps = `-- name: ListPendingFollowUps :many
SELECT ` + assessmentColumns + `
FROM assessments
WHERE followup_status = 'pending'
ORDER BY created_at
LIMIT $1
`

func (q *Queries) ListPendingFollowUps(ctx context.Context, limit int32) ([]Assessment, error) {
	rows, err := q.query(ctx, listPendingFollowUps, limit)
	if err != nil {
		return nil, err
	}
	return collectAssessments(rows)
}

const setAssessmentBriefing = `-- name: SetAssessmentBriefing :one
UPDATE assessments
SET briefing = $2, followup_status = 'done', followup_error = NULL
WHERE id = $1
RETURNING ` + assessmentColumns

type SetAssessmentBriefingParams struct {
	ID       uuid.UUID
	Briefing sql.NullString
}

func (q *Queries) SetAssessmentBriefing(ctx context.Context, arg SetAssessmentBriefingParams) (Assessment, error) {
	return scanAssessment(q.queryRow(ctx, setAssessmentBriefing, arg.ID, arg.Briefing))
}

const setFollowUpError = `-- name: SetFollowUpError :one
UPDATE assessments
SET followup_status = 'error', followup_error = $2
WHERE id = $1
RETURNING ` + assessmentColumns

type SetFollowUpErrorParams struct {
	ID            uuid.UUID
	FollowupError sql.NullString
}

func (q *Queries) SetFollowUpError(ctx context.Context, arg SetFollowUpErrorParams) (Assessment, error) {
	return scanAssessment(q.queryRow(ctx, setFollowUpError, arg.ID, arg.FollowupError))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (Assessment, error) {
	var i Assessment
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.TotalScore,
		&i.RiskLevel,
		&i.Answers,
		&i.Recommendations,
		&i.DetailedAdvice,
		&i.Briefing,
		&i.FollowupStatus,
		&i.FollowupError,
		&i.CreatedAt,
	)
	return i, err
}

func collectAssessments(rows *sql.Rows) ([]Assessment, error) {
	defer rows.Close()
	var items []Assessment
	for rows.Next() {
		i, err := scanAssessment(rows)
		if err != nil {
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
