package assessment

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// Band thresholds, as a percentage of the bank's maximum score. A percentage
// exactly on a threshold belongs to the lower band.
const (
	lowUpperPercent      = 30.0
	moderateUpperPercent = 60.0
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// RiskLevel is the triage category. String values match the Postgres enum so
// they can be cast to db.RiskLevel without conversion.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Valid reports whether l is one of the three known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

// Result is the outcome of one completed assessment pass. It is derived and
// never mutated after Score returns it.
type Result struct {
	TotalScore      int       `json:"total_score"`
	MaxScore        int       `json:"max_score"`
	Percentage      float64   `json:"percentage"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Recommendations string    `json:"recommendations"`
	DetailedAdvice  []string  `json:"detailed_advice"`
}

// ShowCrisisPanel reports whether the crisis-contact panel should be shown
// alongside this result.
func (r Result) ShowCrisisPanel() bool { return r.RiskLevel == RiskHigh }

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Classify maps a percentage of the maximum score onto a risk level.
func Classify(percentage float64) RiskLevel {
	switch {
	case percentage <= lowUpperPercent:
		return RiskLow
	case percentage <= moderateUpperPercent:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// Score sums a complete answer set and attaches the advice bundle for the
// resulting risk level. It is pure. Callers must pass a complete, in-range
// answer set; the wizard guarantees this by construction and HTTP callers run
// AnswerSet.Validate first.
func Score(b *Bank, answers AnswerSet) Result {
	total := 0
	for _, q := range b.questions {
		total += answers[q.ID]
	}

	pct := float64(total) / float64(b.MaxScore()) * 100
	level := Classify(pct)
	adv := AdviceFor(level)

	return Result{
		TotalScore:      total,
		MaxScore:        b.MaxScore(),
		Percentage:      pct,
		RiskLevel:       level,
		Recommendations: adv.Recommendations,
		DetailedAdvice:  adv.Detailed(),
	}
}
