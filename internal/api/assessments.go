package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
	"github.com/nyashahama/counselling-portal-backend/internal/worker"
)

// saveTimeout bounds a result save. Saves run detached from the request so a
// client that disconnects does not cancel them.
const saveTimeout = 15 * time.Second

// ─── RESULT SINK ──────────────────────────────────────────────────────────────

// resultSink persists a completed assessment and hands it to the follow-up
// worker. Enqueue failures are logged only: the row is saved as pending and
// the worker's poller will find it.
type resultSink struct {
	store  Store
	worker worker.Enqueuer
	logger *slog.Logger
}

var _ assessment.Sink = (*resultSink)(nil)

func (k *resultSink) Submit(ctx context.Context, sub assessment.Submission) error {
	_, err := k.save(ctx, sub)
	return err
}

func (k *resultSink) save(ctx context.Context, sub assessment.Submission) (db.Assessment, error) {
	row, err := k.store.SaveAssessment(ctx, sub)
	if err != nil {
		return db.Assessment{}, err
	}
	if err := k.worker.Enqueue(ctx, row.ID); err != nil {
		k.logger.Warn("assessment saved but follow-up not enqueued",
			"assessment_id", row.ID,
			"error", err,
		)
	}
	return row, nil
}

// ─── GET /api/assessment/questions ────────────────────────────────────────────

type questionsResponse struct {
	Questions []assessment.Question `json:"questions"`
	MaxScore  int                   `json:"max_score"`
}

func (s *Server) handleListQuestions(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, questionsResponse{
		Questions: s.bank.Questions(),
		MaxScore:  s.bank.MaxScore(),
	})
}

// ─── POST /api/assessments ────────────────────────────────────────────────────
//
// One-shot submission for clients that run the wizard locally. The result is
// always returned; a failed save is reported alongside it, not instead of it.

type submitAssessmentRequest struct {
	Answers assessment.AnswerSet `json:"answers" validate:"required"`
}

type submitAssessmentResponse struct {
	Result       assessment.View `json:"result"`
	Saved        bool            `json:"saved"`
	AssessmentID string          `json:"assessment_id,omitempty"`
	Notice       string          `json:"notice,omitempty"`
}

func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req submitAssessmentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := req.Answers.Validate(s.bank); err != nil {
		respondFieldErrs(w, answerFieldErrors(s.bank, req.Answers))
		return
	}

	result := assessment.Score(s.bank, req.Answers)
	sub := assessment.NewSubmission(identityFrom(r).UserID, req.Answers, result)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), saveTimeout)
	defer cancel()

	row, err := s.results.save(ctx, sub)
	if err != nil {
		s.logger.Error("assessment save failed", "user_id", sub.UserID, "error", err, logField(r))
		respond(w, http.StatusOK, submitAssessmentResponse{
			Result: assessment.Present(result),
			Notice: assessment.SaveFailedNotice,
		})
		return
	}

	respond(w, http.StatusCreated, submitAssessmentResponse{
		Result:       assessment.Present(result),
		Saved:        true,
		AssessmentID: row.ID.String(),
	})
}

// answerFieldErrors reports each problem with an incoming answer set under
// the question id it concerns.
func answerFieldErrors(b *assessment.Bank, answers assessment.AnswerSet) map[string]string {
	fields := map[string]string{}
	for id, score := range answers {
		switch {
		case !b.Has(id):
			fields[id] = "unknown question"
		case score < assessment.MinOptionScore || score > assessment.MaxOptionScore:
			fields[id] = fmt.Sprintf("must be between %d and %d", assessment.MinOptionScore, assessment.MaxOptionScore)
		}
	}
	for _, q := range b.Questions() {
		if _, ok := answers[q.ID]; !ok {
			fields[q.ID] = "is required"
		}
	}
	return fields
}

// ─── GET /api/assessments ─────────────────────────────────────────────────────

type assessmentResponse struct {
	ID              string    `json:"id"`
	TotalScore      int       `json:"total_score"`
	MaxScore        int       `json:"max_score"`
	RiskLevel       string    `json:"risk_level"`
	Recommendations string    `json:"recommendations"`
	DetailedAdvice  []string  `json:"detailed_advice"`
	FollowupStatus  string    `json:"followup_status"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Server) toAssessmentResponse(row db.Assessment) (assessmentResponse, error) {
	advice, err := store.DecodeAdvice(row)
	if err != nil {
		return assessmentResponse{}, err
	}
	if advice == nil {
		advice = []string{}
	}
	return assessmentResponse{
		ID:              row.ID.String(),
		TotalScore:      int(row.TotalScore),
		MaxScore:        s.bank.MaxScore(),
		RiskLevel:       string(row.RiskLevel),
		Recommendations: row.Recommendations,
		DetailedAdvice:  advice,
		FollowupStatus:  string(row.FollowupStatus),
		CreatedAt:       row.CreatedAt,
	}, nil
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, defaultHistoryLimit, maxHistoryLimit)
	if !ok {
		return
	}

	rows, err := s.q.ListAssessmentsByUser(r.Context(), db.ListAssessmentsByUserParams{
		UserID: identityFrom(r).UserID,
		Limit:  limit,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list assessments: %w", err))
		return
	}

	out := make([]assessmentResponse, 0, len(rows))
	for _, row := range rows {
		a, err := s.toAssessmentResponse(row)
		if err != nil {
			s.respondInternalErr(w, r, err)
			return
		}
		out = append(out, a)
	}
	respond(w, http.StatusOK, map[string]any{"assessments": out})
}

// queryLimit reads ?limit=, falling back to def and rejecting values outside
// [1, maxLimit].
func queryLimit(w http.ResponseWriter, r *http.Request, def, maxLimit int32) (int32, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 1 || int32(n) > maxLimit {
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxLimit))
		return 0, false
	}
	return int32(n), true
}
