package assessment

import (
	"context"

	"github.com/google/uuid"
)

// SaveFailedNotice is shown when a completed result could not be persisted.
// The result itself stays on screen.
const SaveFailedNotice = "failed to save, please try again"

// Actions offered next to every result.
const (
	ActionRestart           = "restart"
	ActionContactCounsellor = "contact_counsellor"
)

// Submission is what the result sink persists for one completed pass.
type Submission struct {
	UserID          uuid.UUID
	TotalScore      int
	RiskLevel       RiskLevel
	Answers         AnswerSet
	Recommendations string
	DetailedAdvice  []string
}

// NewSubmission builds the sink payload for a result.
func NewSubmission(userID uuid.UUID, answers AnswerSet, r Result) Submission {
	return Submission{
		UserID:          userID,
		TotalScore:      r.TotalScore,
		RiskLevel:       r.RiskLevel,
		Answers:         answers.Clone(),
		Recommendations: r.Recommendations,
		DetailedAdvice:  r.DetailedAdvice,
	}
}

// Sink persists completed results. The API's result sink saves through the
// store and enqueues the follow-up; the timestamp is assigned by the database.
type Sink interface {
	Submit(ctx context.Context, s Submission) error
}

// CrisisContact is one entry on the crisis panel.
type CrisisContact struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Hours   string `json:"hours"`
}

var crisisContacts = []CrisisContact{
	{Name: "Emergency services", Contact: "Call your local emergency number", Hours: "24/7"},
	{Name: "Crisis text line", Contact: "Text HOME to 741741", Hours: "24/7"},
	{Name: "Suicide & crisis lifeline", Contact: "Call or text 988", Hours: "24/7"},
	{Name: "Campus counselling centre", Contact: "Start a session from the portal", Hours: "Office hours"},
}

// View is the presentation model for a result.
type View struct {
	Score           int             `json:"score"`
	MaxScore        int             `json:"max_score"`
	Percentage      float64         `json:"percentage"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	Recommendations string          `json:"recommendations"`
	DetailedAdvice  []string        `json:"detailed_advice"`
	CrisisPanel     []CrisisContact `json:"crisis_panel,omitempty"`
	Actions         []string        `json:"actions"`
}

// Present renders a result into its view model. The crisis panel is only
// populated for high risk.
func Present(r Result) View {
	v := View{
		Score:           r.TotalScore,
		MaxScore:        r.MaxScore,
		Percentage:      r.Percentage,
		RiskLevel:       r.RiskLevel,
		Recommendations: r.Recommendations,
		DetailedAdvice:  r.DetailedAdvice,
		Actions:         []string{ActionRestart, ActionContactCounsellor},
	}
	if r.ShowCrisisPanel() {
		v.CrisisPanel = make([]CrisisContact, len(crisisContacts))
		copy(v.CrisisPanel, crisisContacts)
	}
	return v
}
