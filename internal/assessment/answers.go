package assessment

import (
	"errors"
	"fmt"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	ErrUnknownQuestion = errors.New("assessment: unknown question id")
	ErrScoreOutOfRange = errors.New("assessment: score out of range")
	ErrIncomplete      = errors.New("assessment: not every question has been answered")
)

// AnswerSet maps question id to the chosen option's score. Insertion order is
// irrelevant: scoring is a sum.
type AnswerSet map[string]int

// Clone returns an independent copy. A nil set clones to an empty one.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Complete reports whether every question in the bank has an answer.
func (a AnswerSet) Complete(b *Bank) bool {
	for _, q := range b.questions {
		if _, ok := a[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Validate checks that every key is a bank id, every score is within
// [MinOptionScore, MaxOptionScore], and every question is answered. The wizard
// never needs this; it is for answer sets arriving from outside.
func (a AnswerSet) Validate(b *Bank) error {
	var errs []error
	for id, score := range a {
		if !b.Has(id) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownQuestion, id))
			continue
		}
		if !validScore(score) {
			errs = append(errs, fmt.Errorf("%w: %s=%d", ErrScoreOutOfRange, id, score))
		}
	}
	for _, q := range b.questions {
		if _, ok := a[q.ID]; !ok {
			errs = append(errs, fmt.Errorf("%w: missing %q", ErrIncomplete, q.ID))
		}
	}
	return errors.Join(errs...)
}

func validScore(s int) bool {
	return s >= MinOptionScore && s <= MaxOptionScore
}
