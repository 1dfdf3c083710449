// Package ai generates the short counsellor briefing attached to each saved
// assessment. Anthropic and DeepSeek back the Briefer interface; a static
// briefer is used when neither is configured or both fail.
package ai

import (
	"context"
	"fmt"
	"strings"
)

// AnswerLine is one answered question as shown to the model.
type AnswerLine struct {
	QuestionID string
	Prompt     string
	Label      string // the chosen option's label
	Score      int
}

// BriefingInput is everything the briefer may see about one assessment. It
// carries no contact details.
type BriefingInput struct {
	StudentName string
	University  string
	YearOfStudy int // 0 when unknown
	TotalScore  int
	MaxScore    int
	RiskLevel   string
	Answers     []AnswerLine
}

// Briefing is the structured output of a successful Brief call.
type Briefing struct {
	// Summary is 2–3 sentences on how the student is doing overall.
	Summary string

	// Concerns lists the areas that scored highest, most severe first.
	Concerns []string

	// OpeningQuestions are gentle prompts the counsellor can start with.
	OpeningQuestions []string
}

// Text renders the briefing as the plain text stored on the assessment row.
func (b Briefing) Text() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(b.Summary))
	if len(b.Concerns) > 0 {
		sb.WriteString("\n\nAreas of concern:\n")
		for _, c := range b.Concerns {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	if len(b.OpeningQuestions) > 0 {
		if len(b.Concerns) == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("\nSuggested openers:\n")
		for _, q := range b.OpeningQuestions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Briefer is the interface the worker uses to write counsellor briefings.
// Implementations must be safe to call concurrently. A non-nil error means
// the whole call failed; the worker then falls back to a static briefing.
type Briefer interface {
	Brief(ctx context.Context, in BriefingInput) (Briefing, error)
}
