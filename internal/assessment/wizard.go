package assessment

import (
	"errors"
	"slices"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrNotCurrentQuestion is returned when an answer targets a question
	// other than the one the wizard is showing.
	ErrNotCurrentQuestion = errors.New("assessment: answer is not for the current question")

	// ErrCompleted is returned when an answer arrives after the final Next.
	ErrCompleted = errors.New("assessment: wizard already completed")

	// ErrNotStarted is returned by a zero Wizard that was not made by Start.
	ErrNotStarted = errors.New("assessment: wizard not started")
)

// ─── WIZARD ───────────────────────────────────────────────────────────────────

// Wizard is the answer collector. It is a value: every transition returns a
// new Wizard and leaves the receiver untouched, so a caller can keep the old
// state around (e.g. to compare before/after) without aliasing.
//
// States are Question(i) for i in [0, N) and Completed. Completed is entered
// only through Next on the last question and carries exactly one Result.
// Create one with Start; the zero value has no bank and never advances.
type Wizard struct {
	bank    *Bank
	index   int
	answers AnswerSet
	result  *Result
}

// Start returns a wizard at the first question with no answers.
func Start(b *Bank) Wizard {
	return Wizard{bank: b, answers: AnswerSet{}}
}

// Bank returns the question bank the wizard walks.
func (w Wizard) Bank() *Bank { return w.bank }

// Completed reports whether the wizard has reached its terminal state.
func (w Wizard) Completed() bool { return w.result != nil }

// Index returns the current question position. It is Len() once completed.
func (w Wizard) Index() int {
	if w.Completed() {
		return w.bank.Len()
	}
	return w.index
}

// Answers returns a copy of the collected answers.
func (w Wizard) Answers() AnswerSet { return w.answers.Clone() }

// CurrentQuestion returns the question being shown, or false once completed.
func (w Wizard) CurrentQuestion() (Question, bool) {
	if w.Completed() || w.bank == nil {
		return Question{}, false
	}
	return w.bank.At(w.index), true
}

// Result returns the scored result, or false until completed.
func (w Wizard) Result() (Result, bool) {
	if w.result == nil {
		return Result{}, false
	}
	r := *w.result
	r.DetailedAdvice = slices.Clone(r.DetailedAdvice)
	return r, true
}

// CanAdvance reports whether Next would move the wizard. Callers can use it
// to disable a "next" control; Next itself enforces the same rule.
func (w Wizard) CanAdvance() bool {
	if w.Completed() || w.bank == nil {
		return false
	}
	_, ok := w.answers[w.bank.At(w.index).ID]
	return ok
}

// Answer records score for the current question, overwriting any earlier
// answer to it. It never advances the wizard.
func (w Wizard) Answer(questionID string, score int) (Wizard, error) {
	if w.Completed() {
		return w, ErrCompleted
	}
	if w.bank == nil {
		return w, ErrNotStarted
	}
	if w.bank.At(w.index).ID != questionID {
		return w, ErrNotCurrentQuestion
	}
	if !validScore(score) {
		return w, ErrScoreOutOfRange
	}

	next := w
	next.answers = w.answers.Clone()
	next.answers[questionID] = score
	return next, nil
}

// Next advances to the following question, or into Completed from the last
// one. It reports false, and returns w unchanged, when the current question
// has no answer.
func (w Wizard) Next() (Wizard, bool) {
	if !w.CanAdvance() {
		return w, false
	}

	next := w
	if w.index < w.bank.Len()-1 {
		next.index = w.index + 1
		return next, true
	}

	// Every earlier question had to be answered to get here, so the set is
	// complete.
	res := Score(w.bank, w.answers)
	next.result = &res
	return next, true
}

// Previous moves back one question. It is a no-op on the first question and
// once completed.
func (w Wizard) Previous() Wizard {
	if w.Completed() || w.index == 0 {
		return w
	}
	prev := w
	prev.index = w.index - 1
	return prev
}

// Reset discards all answers and any result.
func (w Wizard) Reset() Wizard {
	return Start(w.bank)
}
