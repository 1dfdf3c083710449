package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/ai"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/email"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

// FollowUpStore is the subset of *store.Store the pipeline writes through.
type FollowUpStore interface {
	CompleteFollowUp(ctx context.Context, id uuid.UUID, briefing string) (db.Assessment, error)
	MarkFollowUpFailed(ctx context.Context, id uuid.UUID, cause error) error
}

var _ FollowUpStore = (*store.Store)(nil)

// Job holds the dependencies for the assessment follow-up pipeline. Each
// step is a separate method so Run reads top to bottom.
type Job struct {
	q       db.Querier
	store   FollowUpStore
	bank    *assessment.Bank
	briefer ai.Briefer
	mailer  email.Sender
	logger  *slog.Logger
}

// NewJob constructs a Job with all required dependencies.
func NewJob(
	q db.Querier,
	st FollowUpStore,
	bank *assessment.Bank,
	briefer ai.Briefer,
	mailer email.Sender,
	logger *slog.Logger,
) *Job {
	return &Job{
		q:       q,
		store:   st,
		bank:    bank,
		briefer: briefer,
		mailer:  mailer,
		logger:  logger,
	}
}

// Run executes the follow-up for one saved assessment:
//
//  1. Load the assessment, the student and their profile.
//  2. Ask the briefer for a counsellor briefing (static fallback on failure).
//  3. Store the briefing and mark the follow-up done.
//  4. Email the student their summary.
//
// Only steps 1 and 3 can fail the job. An assessment whose follow-up is
// already done is skipped, so duplicate deliveries from the poller are
// harmless.
func (j *Job) Run(ctx context.Context, assessmentID uuid.UUID) error {
	log := j.logger.With("assessment_id", assessmentID)
	log.Info("job: starting")

	// ── 1. Load ───────────────────────────────────────────────────────────────
	row, err := j.q.GetAssessmentByID(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("job: get assessment: %w", err)
	}
	if row.FollowupStatus != db.FollowupStatusPending {
		log.Debug("job: follow-up already handled", "status", row.FollowupStatus)
		return nil
	}

	user, err := j.q.GetUserByID(ctx, row.UserID)
	if err != nil {
		return fmt.Errorf("job: get user: %w", err)
	}
	profile, err := j.q.GetProfile(ctx, row.UserID)
	if err != nil {
		return fmt.Errorf("job: get profile: %w", err)
	}

	answers, err := store.DecodeAnswers(row)
	if err != nil {
		return fmt.Errorf("job: %w", err)
	}
	in := j.briefingInput(row, profile, answers)

	// ── 2. Brief ──────────────────────────────────────────────────────────────
	briefing, err := j.briefer.Brief(ctx, in)
	if err != nil {
		// Non-fatal: the counsellor still gets a usable briefing.
		log.Warn("job: briefer failed, using static briefing", "error", err)
		briefing, _ = ai.StaticBriefer{}.Brief(ctx, in)
	}

	// ── 3. Persist ────────────────────────────────────────────────────────────
	if _, err := j.store.CompleteFollowUp(ctx, assessmentID, briefing.Text()); err != nil {
		return fmt.Errorf("job: complete follow-up: %w", err)
	}
	log.Info("job: briefing stored", "risk_level", row.RiskLevel)

	// ── 4. Email ──────────────────────────────────────────────────────────────
	advice, err := store.DecodeAdvice(row)
	if err != nil {
		log.Warn("job: could not decode advice for email", "error", err)
	}
	level := assessment.RiskLevel(row.RiskLevel)
	if err := j.mailer.SendAssessmentSummary(ctx, email.AssessmentSummaryParams{
		To:              user.Email,
		FullName:        profile.FullName,
		TotalScore:      int(row.TotalScore),
		MaxScore:        j.bank.MaxScore(),
		RiskLevel:       string(level),
		Recommendations: row.Recommendations,
		DetailedAdvice:  advice,
		ShowCrisis:      level == assessment.RiskHigh,
	}); err != nil {
		// The result is already stored and visible in the portal.
		log.Error("job: failed to send summary email", "to", user.Email, "error", err)
	}

	return nil
}

// briefingInput maps the stored row onto what the briefer sees. Answers are
// listed in bank order with their option labels.
func (j *Job) briefingInput(row db.Assessment, p db.Profile, answers assessment.AnswerSet) ai.BriefingInput {
	in := ai.BriefingInput{
		StudentName: p.FullName,
		University:  p.University.String,
		TotalScore:  int(row.TotalScore),
		MaxScore:    j.bank.MaxScore(),
		RiskLevel:   string(row.RiskLevel),
	}
	if p.YearOfStudy.Valid {
		in.YearOfStudy = int(p.YearOfStudy.Int16)
	}
	for _, q := range j.bank.Questions() {
		score, ok := answers[q.ID]
		if !ok {
			continue
		}
		line := ai.AnswerLine{QuestionID: q.ID, Prompt: q.Prompt, Score: score}
		for _, o := range q.Options {
			if o.Score == score {
				line.Label = o.Label
				break
			}
		}
		in.Answers = append(in.Answers, line)
	}
	return in
}
