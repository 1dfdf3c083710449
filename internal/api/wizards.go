package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
)

// ─── REGISTRY ─────────────────────────────────────────────────────────────────

type saveStatus string

const (
	savePending saveStatus = "pending"
	saveDone    saveStatus = "saved"
	saveFailed  saveStatus = "failed"
)

// wizardEntry is one student's in-progress assessment. gen changes on every
// reset so a save that finishes after a reset cannot touch the new pass.
type wizardEntry struct {
	wizard assessment.Wizard
	gen    uint64
	save   saveStatus

	touched time.Time
}

const (
	// wizardIdleTTL is how long an untouched wizard is kept. Entries with a
	// save in flight are kept regardless.
	wizardIdleTTL = 24 * time.Hour
	// wizardSweepEvery rate-limits the idle sweep run from start.
	wizardSweepEvery = 10 * time.Minute
)

// wizardRegistry holds at most one wizard per student, in memory. Wizard
// values are immutable; the registry swaps the stored value under mu.
// Entries idle for wizardIdleTTL are dropped by a sweep that runs from start.
type wizardRegistry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*wizardEntry
	gen     uint64
	swept   time.Time
	now     func() time.Time
}

func newWizardRegistry() *wizardRegistry {
	return &wizardRegistry{entries: make(map[uuid.UUID]*wizardEntry), now: time.Now}
}

// sweep drops idle entries whose save has settled. Callers hold mu.
func (reg *wizardRegistry) sweep() {
	now := reg.now()
	if now.Sub(reg.swept) < wizardSweepEvery {
		return
	}
	reg.swept = now
	for id, e := range reg.entries {
		if e.save != savePending && now.Sub(e.touched) > wizardIdleTTL {
			delete(reg.entries, id)
		}
	}
}

// start returns the caller's wizard, creating it if absent.
func (reg *wizardRegistry) start(userID uuid.UUID, b *assessment.Bank) (wizardEntry, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.sweep()
	if e, ok := reg.entries[userID]; ok {
		return *e, false
	}
	e := reg.fresh(b)
	reg.entries[userID] = e
	return *e, true
}

func (reg *wizardRegistry) fresh(b *assessment.Bank) *wizardEntry {
	reg.gen++
	return &wizardEntry{wizard: assessment.Start(b), gen: reg.gen, touched: reg.now()}
}

func (reg *wizardRegistry) get(userID uuid.UUID) (wizardEntry, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.entries[userID]
	if !ok {
		return wizardEntry{}, false
	}
	return *e, true
}

// update runs fn on a copy of the caller's entry and stores the copy unless
// fn returns an error.
func (reg *wizardRegistry) update(userID uuid.UUID, fn func(*wizardEntry) error) (wizardEntry, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.entries[userID]
	if !ok {
		return wizardEntry{}, errNoWizard
	}
	next := *e
	if err := fn(&next); err != nil {
		return *e, err
	}
	next.touched = reg.now()
	*e = next
	return next, nil
}

// reset puts the caller back on the first question. An in-flight save for the
// previous pass keeps running but its outcome is dropped.
func (reg *wizardRegistry) reset(userID uuid.UUID, b *assessment.Bank) wizardEntry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e := reg.fresh(b)
	reg.entries[userID] = e
	return *e
}

// finishSave records the outcome of the save started for generation gen.
func (reg *wizardRegistry) finishSave(userID uuid.UUID, gen uint64, st saveStatus) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e, ok := reg.entries[userID]; ok && e.gen == gen {
		e.save = st
		e.touched = reg.now()
	}
}

var (
	errNoWizard      = errors.New("no assessment in progress")
	errAnswerMissing = errors.New("answer required")
)

// ─── VIEW ─────────────────────────────────────────────────────────────────────

type wizardResponse struct {
	State      string               `json:"state"` // "question" | "completed"
	Index      int                  `json:"index"`
	Total      int                  `json:"total"`
	Question   *assessment.Question `json:"question,omitempty"`
	Answers    assessment.AnswerSet `json:"answers"`
	CanAdvance bool                 `json:"can_advance"`
	Result     *assessment.View     `json:"result,omitempty"`
	SaveStatus string               `json:"save_status,omitempty"`
	Notice     string               `json:"notice,omitempty"`
}

func toWizardResponse(e wizardEntry) wizardResponse {
	w := e.wizard
	resp := wizardResponse{
		State:      "question",
		Index:      w.Index(),
		Total:      w.Bank().Len(),
		Answers:    w.Answers(),
		CanAdvance: w.CanAdvance(),
		SaveStatus: string(e.save),
	}
	if q, ok := w.CurrentQuestion(); ok {
		resp.Question = &q
	}
	if res, ok := w.Result(); ok {
		v := assessment.Present(res)
		resp.State = "completed"
		resp.Result = &v
	}
	if e.save == saveFailed {
		resp.Notice = assessment.SaveFailedNotice
	}
	return resp
}

// ─── POST /api/assessment/wizard ──────────────────────────────────────────────

// handleStartWizard begins an assessment. A student with a wizard already in
// the registry gets that one back until they reset it.
func (s *Server) handleStartWizard(w http.ResponseWriter, r *http.Request) {
	e, created := s.wizards.start(identityFrom(r).UserID, s.bank)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(w, status, toWizardResponse(e))
}

// ─── GET /api/assessment/wizard ───────────────────────────────────────────────

func (s *Server) handleGetWizard(w http.ResponseWriter, r *http.Request) {
	e, ok := s.wizards.get(identityFrom(r).UserID)
	if !ok {
		respondErr(w, http.StatusNotFound, errNoWizard.Error())
		return
	}
	respond(w, http.StatusOK, toWizardResponse(e))
}

// ─── PUT /api/assessment/wizard/answer ────────────────────────────────────────

type wizardAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Score      *int   `json:"score"`
}

func (s *Server) handleWizardAnswer(w http.ResponseWriter, r *http.Request) {
	var req wizardAnswerRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Score == nil {
		respondFieldErrs(w, map[string]string{"score": "is required"})
		return
	}

	e, err := s.wizards.update(identityFrom(r).UserID, func(e *wizardEntry) error {
		next, err := e.wizard.Answer(req.QuestionID, *req.Score)
		if err != nil {
			return err
		}
		e.wizard = next
		return nil
	})
	if err != nil {
		s.respondWizardErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, toWizardResponse(e))
}

// ─── POST /api/assessment/wizard/next ─────────────────────────────────────────

// handleWizardNext advances the wizard. Leaving the last question scores the
// answers and submits the result in the background; the response carries the
// result straight away with save_status "pending".
func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	userID := identityFrom(r).UserID
	var sub *assessment.Submission

	e, err := s.wizards.update(userID, func(e *wizardEntry) error {
		if e.wizard.Completed() {
			return assessment.ErrCompleted
		}
		next, ok := e.wizard.Next()
		if !ok {
			return errAnswerMissing
		}
		e.wizard = next
		if res, done := next.Result(); done {
			e.save = savePending
			submission := assessment.NewSubmission(userID, next.Answers(), res)
			sub = &submission
		}
		return nil
	})
	if err != nil {
		s.respondWizardErr(w, r, err)
		return
	}

	if sub != nil {
		go s.submitResult(userID, e.gen, *sub)
	}
	respond(w, http.StatusOK, toWizardResponse(e))
}

// submitResult hands a completed pass to the sink exactly once. It is not
// retried: on failure the student sees the notice and can submit again.
func (s *Server) submitResult(userID uuid.UUID, gen uint64, sub assessment.Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	var sink assessment.Sink = s.results
	if err := sink.Submit(ctx, sub); err != nil {
		s.logger.Error("wizard result save failed", "user_id", userID, "error", err)
		s.wizards.finishSave(userID, gen, saveFailed)
		return
	}
	s.wizards.finishSave(userID, gen, saveDone)
}

// ─── POST /api/assessment/wizard/previous ─────────────────────────────────────

func (s *Server) handleWizardPrevious(w http.ResponseWriter, r *http.Request) {
	e, err := s.wizards.update(identityFrom(r).UserID, func(e *wizardEntry) error {
		e.wizard = e.wizard.Previous()
		return nil
	})
	if err != nil {
		s.respondWizardErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, toWizardResponse(e))
}

// ─── DELETE /api/assessment/wizard ────────────────────────────────────────────

func (s *Server) handleResetWizard(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, toWizardResponse(s.wizards.reset(identityFrom(r).UserID, s.bank)))
}

func (s *Server) respondWizardErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNoWizard):
		respondErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errAnswerMissing):
		respondErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, assessment.ErrCompleted):
		respondErr(w, http.StatusConflict, "assessment already completed")
	case errors.Is(err, assessment.ErrNotCurrentQuestion):
		respondErr(w, http.StatusConflict, "answer is not for the current question")
	case errors.Is(err, assessment.ErrScoreOutOfRange):
		respondFieldErrs(w, map[string]string{"score": "must be between 0 and 3"})
	default:
		s.respondInternalErr(w, r, err)
	}
}
