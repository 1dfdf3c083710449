package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/sqlc-dev/pqtype"
)

// SaveAssessment persists one completed assessment. The row starts with
// followup_status = pending so the worker poller will pick it up even if the
// in-process enqueue is lost.
func (s *Store) SaveAssessment(ctx context.Context, sub assessment.Submission) (db.Assessment, error) {
	if !sub.RiskLevel.Valid() {
		return db.Assessment{}, fmt.Errorf("SaveAssessment: invalid risk level %q", sub.RiskLevel)
	}

	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return db.Assessment{}, fmt.Errorf("SaveAssessment: marshal answers: %w", err)
	}

	advice := pqtype.NullRawMessage{}
	if len(sub.DetailedAdvice) > 0 {
		raw, err := json.Marshal(sub.DetailedAdvice)
		if err != nil {
			return db.Assessment{}, fmt.Errorf("SaveAssessment: marshal advice: %w", err)
		}
		advice = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	row, err := s.q.InsertAssessment(ctx, db.InsertAssessmentParams{
		UserID:          sub.UserID,
		TotalScore:      int16(sub.TotalScore),
		RiskLevel:       db.RiskLevel(sub.RiskLevel),
		Answers:         answers,
		Recommendations: sub.Recommendations,
		DetailedAdvice:  advice,
	})
	if err != nil {
		return db.Assessment{}, fmt.Errorf("SaveAssessment: insert: %w", err)
	}
	return row, nil
}

// CompleteFollowUp stores the counsellor briefing and marks the follow-up
// done.
func (s *Store) CompleteFollowUp(ctx context.Context, id uuid.UUID, briefing string) (db.Assessment, error) {
	row, err := s.q.SetAssessmentBriefing(ctx, db.SetAssessmentBriefingParams{
		ID:       id,
		Briefing: sql.NullString{String: briefing, Valid: briefing != ""},
	})
	if err != nil {
		return db.Assessment{}, fmt.Errorf("CompleteFollowUp: %w", err)
	}
	return row, nil
}

// MarkFollowUpFailed records a permanent follow-up failure so the poller
// stops retrying the row.
func (s *Store) MarkFollowUpFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := s.q.SetFollowUpError(ctx, db.SetFollowUpErrorParams{
		ID:            id,
		FollowupError: sql.NullString{String: msg, Valid: true},
	}); err != nil {
		return fmt.Errorf("MarkFollowUpFailed: %w", err)
	}
	return nil
}

// DecodeAdvice unpacks the detailed_advice column. A NULL column yields nil.
func DecodeAdvice(row db.Assessment) ([]string, error) {
	if !row.DetailedAdvice.Valid {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(row.DetailedAdvice.RawMessage, &out); err != nil {
		return nil, fmt.Errorf("DecodeAdvice: %w", err)
	}
	return out, nil
}

// DecodeAnswers unpacks the answers column into an AnswerSet.
func DecodeAnswers(row db.Assessment) (assessment.AnswerSet, error) {
	out := assessment.AnswerSet{}
	if len(row.Answers) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(row.Answers, &out); err != nil {
		return nil, fmt.Errorf("DecodeAnswers: %w", err)
	}
	return out, nil
}
