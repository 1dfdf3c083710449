// Package assessment implements the student self-assessment: the fixed
// question bank, the one-question-at-a-time wizard, and the risk scorer.
// It imports nothing from internal/ and can be tested without a database.
package assessment

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Option is one ordinal answer to a question.
type Option struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// Question is a single Likert-scale item. Questions are defined once at
// process start and never mutated.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Bank is the fixed, ordered list of questions the wizard walks through.
type Bank struct {
	questions []Question
	index     map[string]int // question id → position
}

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// MinOptionScore and MaxOptionScore bound every option score.
const (
	MinOptionScore = 0
	MaxOptionScore = 3
)

// frequencyOptions is shared by every question in the default bank.
var frequencyOptions = []Option{
	{Score: 0, Label: "Not at all"},
	{Score: 1, Label: "Several days"},
	{Score: 2, Label: "More than half the days"},
	{Score: 3, Label: "Nearly every day"},
}

// defaultQuestions is the six-item check-in used across the portal. The order
// here is the order the wizard presents them in.
var defaultQuestions = []Question{
	{ID: "sleep", Prompt: "Over the last two weeks, how often have you had trouble falling or staying asleep, or sleeping too much?"},
	{ID: "anxiety", Prompt: "Over the last two weeks, how often have you felt nervous, anxious, or on edge?"},
	{ID: "mood", Prompt: "Over the last two weeks, how often have you felt down, depressed, or hopeless?"},
	{ID: "concentration", Prompt: "Over the last two weeks, how often have you had trouble concentrating on things such as lectures, reading, or assignments?"},
	{ID: "social", Prompt: "Over the last two weeks, how often have you avoided friends, classes, or social activities you would normally attend?"},
	{ID: "energy", Prompt: "Over the last two weeks, how often have you felt tired or had little energy?"},
}

var defaultBank = mustNewBank(defaultQuestions)

// ─── CONSTRUCTORS ─────────────────────────────────────────────────────────────

// DefaultBank returns the portal's six-question bank. The returned value is
// shared and read-only.
func DefaultBank() *Bank { return defaultBank }

func mustNewBank(qs []Question) *Bank {
	b := &Bank{
		questions: make([]Question, len(qs)),
		index:     make(map[string]int, len(qs)),
	}
	for i, q := range qs {
		opts := make([]Option, len(frequencyOptions))
		copy(opts, frequencyOptions)
		q.Options = opts
		if _, dup := b.index[q.ID]; dup {
			panic("assessment: duplicate question id " + q.ID)
		}
		b.questions[i] = q
		b.index[q.ID] = i
	}
	return b
}

// ─── ACCESSORS ────────────────────────────────────────────────────────────────

// Len returns the number of questions.
func (b *Bank) Len() int { return len(b.questions) }

// MaxScore is the highest achievable total: every question answered with the
// top option.
func (b *Bank) MaxScore() int { return len(b.questions) * MaxOptionScore }

// Questions returns a copy of the ordered question list.
func (b *Bank) Questions() []Question {
	out := make([]Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// At returns the question at position i.
func (b *Bank) At(i int) Question { return b.questions[i] }

// Question looks a question up by id.
func (b *Bank) Question(id string) (Question, bool) {
	i, ok := b.index[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// Has reports whether id belongs to the bank.
func (b *Bank) Has(id string) bool {
	_, ok := b.index[id]
	return ok
}
