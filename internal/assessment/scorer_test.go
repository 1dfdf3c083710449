package assessment_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
)

// answersTotalling spreads total across the bank in question order, filling
// each question up to the maximum option score before moving on.
func answersTotalling(t *testing.T, total int) assessment.AnswerSet {
	t.Helper()
	bank := assessment.DefaultBank()
	if total < 0 || total > bank.MaxScore() {
		t.Fatalf("total %d outside [0,%d]", total, bank.MaxScore())
	}
	out := assessment.AnswerSet{}
	for _, q := range bank.Questions() {
		s := min(total, assessment.MaxOptionScore)
		out[q.ID] = s
		total -= s
	}
	return out
}

// ─── Bank ─────────────────────────────────────────────────────────────────────

func TestDefaultBank_Shape(t *testing.T) {
	bank := assessment.DefaultBank()
	if bank.Len() != 6 {
		t.Fatalf("expected 6 questions, got %d", bank.Len())
	}
	if bank.MaxScore() != 18 {
		t.Errorf("expected max score 18, got %d", bank.MaxScore())
	}

	wantIDs := []string{"sleep", "anxiety", "mood", "concentration", "social", "energy"}
	for i, q := range bank.Questions() {
		if q.ID != wantIDs[i] {
			t.Errorf("position %d: got %q, want %q", i, q.ID, wantIDs[i])
		}
		if len(q.Options) != 4 {
			t.Errorf("%s: expected 4 options, got %d", q.ID, len(q.Options))
		}
		for j, opt := range q.Options {
			if opt.Score != j {
				t.Errorf("%s option %d: score=%d, want %d", q.ID, j, opt.Score, j)
			}
		}
	}
}

func TestDefaultBank_QuestionsReturnsCopy(t *testing.T) {
	bank := assessment.DefaultBank()
	qs := bank.Questions()
	qs[0].ID = "mutated"
	if bank.At(0).ID != "sleep" {
		t.Error("mutating the returned slice changed the bank")
	}
}

// ─── Classify / Score ─────────────────────────────────────────────────────────

func TestScore_BoundaryTable(t *testing.T) {
	tests := []struct {
		total int
		want  assessment.RiskLevel
	}{
		{0, assessment.RiskLow},
		{4, assessment.RiskLow},
		{5, assessment.RiskLow},       // 27.78%
		{6, assessment.RiskModerate},  // 33.33% crosses >30
		{10, assessment.RiskModerate}, // 55.56%
		{11, assessment.RiskHigh},     // 61.11% crosses >60
		{12, assessment.RiskHigh},
		{18, assessment.RiskHigh},
	}
	bank := assessment.DefaultBank()
	for _, tt := range tests {
		res := assessment.Score(bank, answersTotalling(t, tt.total))
		if res.TotalScore != tt.total {
			t.Errorf("total=%d: TotalScore=%d", tt.total, res.TotalScore)
		}
		if res.RiskLevel != tt.want {
			t.Errorf("total=%d (%.2f%%): got %q, want %q", tt.total, res.Percentage, res.RiskLevel, tt.want)
		}
	}
}

func TestClassify_ExactThresholdsFallInLowerBand(t *testing.T) {
	tests := []struct {
		pct  float64
		want assessment.RiskLevel
	}{
		{0, assessment.RiskLow},
		{30, assessment.RiskLow},
		{30.0001, assessment.RiskModerate},
		{60, assessment.RiskModerate},
		{60.0001, assessment.RiskHigh},
		{100, assessment.RiskHigh},
	}
	for _, tt := range tests {
		if got := assessment.Classify(tt.pct); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestScore_SumsEveryCombinationInRange(t *testing.T) {
	bank := assessment.DefaultBank()
	ids := make([]string, 0, bank.Len())
	for _, q := range bank.Questions() {
		ids = append(ids, q.ID)
	}

	// 4^6 = 4096 answer sets, few enough to walk exhaustively.
	n := 1
	for range ids {
		n *= 4
	}
	for code := 0; code < n; code++ {
		answers := assessment.AnswerSet{}
		want := 0
		c := code
		for _, id := range ids {
			answers[id] = c % 4
			want += c % 4
			c /= 4
		}
		res := assessment.Score(bank, answers)
		if res.TotalScore != want {
			t.Fatalf("code %d: TotalScore=%d, want %d", code, res.TotalScore, want)
		}
		if res.TotalScore < 0 || res.TotalScore > 18 {
			t.Fatalf("code %d: TotalScore %d outside [0,18]", code, res.TotalScore)
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	bank := assessment.DefaultBank()
	answers := answersTotalling(t, 9)
	a := assessment.Score(bank, answers)
	b := assessment.Score(bank, answers)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Score is not idempotent:\n a=%+v\n b=%+v", a, b)
	}
}

func TestScore_AdviceBundlePerLevel(t *testing.T) {
	bank := assessment.DefaultBank()
	for _, total := range []int{2, 8, 15} {
		res := assessment.Score(bank, answersTotalling(t, total))
		adv := assessment.AdviceFor(res.RiskLevel)
		if res.Recommendations != adv.Recommendations {
			t.Errorf("total=%d: recommendations mismatch", total)
		}
		if n := len(res.DetailedAdvice); n < 5 || n > 6 {
			t.Errorf("total=%d: expected 5–6 advice items, got %d", total, n)
		}
	}
}

func TestScore_AdviceIsNotShared(t *testing.T) {
	bank := assessment.DefaultBank()
	res := assessment.Score(bank, answersTotalling(t, 0))
	res.DetailedAdvice[0] = "mutated"

	again := assessment.Score(bank, answersTotalling(t, 0))
	if again.DetailedAdvice[0] == "mutated" {
		t.Error("mutating a result's advice leaked into the advice table")
	}
}

func TestScore_EndToEndLow(t *testing.T) {
	answers := assessment.AnswerSet{
		"sleep": 1, "anxiety": 1, "mood": 1, "concentration": 0, "social": 0, "energy": 1,
	}
	res := assessment.Score(assessment.DefaultBank(), answers)
	if res.TotalScore != 4 {
		t.Errorf("TotalScore=%d, want 4", res.TotalScore)
	}
	if res.Percentage < 22.2 || res.Percentage > 22.3 {
		t.Errorf("Percentage=%.3f, want ≈22.2", res.Percentage)
	}
	if res.RiskLevel != assessment.RiskLow {
		t.Errorf("RiskLevel=%q, want low", res.RiskLevel)
	}
	if res.ShowCrisisPanel() {
		t.Error("crisis panel must not show for low risk")
	}
}

func TestScore_EndToEndHigh(t *testing.T) {
	answers := assessment.AnswerSet{
		"sleep": 2, "anxiety": 2, "mood": 2, "concentration": 2, "social": 2, "energy": 2,
	}
	res := assessment.Score(assessment.DefaultBank(), answers)
	if res.TotalScore != 12 {
		t.Errorf("TotalScore=%d, want 12", res.TotalScore)
	}
	if res.Percentage < 66.6 || res.Percentage > 66.7 {
		t.Errorf("Percentage=%.3f, want ≈66.7", res.Percentage)
	}
	if res.RiskLevel != assessment.RiskHigh {
		t.Errorf("RiskLevel=%q, want high", res.RiskLevel)
	}

	view := assessment.Present(res)
	if len(view.CrisisPanel) == 0 {
		t.Error("expected crisis panel for high risk")
	}
}

// ─── AnswerSet.Validate ───────────────────────────────────────────────────────

func TestAnswerSetValidate(t *testing.T) {
	bank := assessment.DefaultBank()

	full := answersTotalling(t, 7)
	if err := full.Validate(bank); err != nil {
		t.Fatalf("complete set: unexpected error: %v", err)
	}

	missing := full.Clone()
	delete(missing, "energy")
	if err := missing.Validate(bank); !errors.Is(err, assessment.ErrIncomplete) {
		t.Errorf("missing answer: expected ErrIncomplete, got %v", err)
	}

	unknown := full.Clone()
	unknown["appetite"] = 1
	if err := unknown.Validate(bank); !errors.Is(err, assessment.ErrUnknownQuestion) {
		t.Errorf("unknown id: expected ErrUnknownQuestion, got %v", err)
	}

	for _, bad := range []int{-1, 4} {
		out := full.Clone()
		out["mood"] = bad
		if err := out.Validate(bank); !errors.Is(err, assessment.ErrScoreOutOfRange) {
			t.Errorf("score %d: expected ErrScoreOutOfRange, got %v", bad, err)
		}
	}
}

// ─── Present ──────────────────────────────────────────────────────────────────

func TestPresent_OffersRestartAndContact(t *testing.T) {
	res := assessment.Score(assessment.DefaultBank(), answersTotalling(t, 8))
	view := assessment.Present(res)

	if view.RiskLevel != assessment.RiskModerate {
		t.Fatalf("expected moderate, got %q", view.RiskLevel)
	}
	if len(view.CrisisPanel) != 0 {
		t.Error("crisis panel must only show for high risk")
	}
	want := []string{assessment.ActionRestart, assessment.ActionContactCounsellor}
	if !reflect.DeepEqual(view.Actions, want) {
		t.Errorf("actions: got %v, want %v", view.Actions, want)
	}
}
