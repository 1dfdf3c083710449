package ai

import (
	"context"
	"fmt"
	"sort"
)

// concernThreshold is the lowest per-question score listed as a concern.
const concernThreshold = 2

// openers are the counsellor prompts used by the static briefer, per band.
var openers = map[string][]string{
	"low": {
		"What has been going well for you lately?",
		"Is there anything you'd like to keep an eye on this term?",
	},
	"moderate": {
		"How have the last couple of weeks felt for you?",
		"What has been taking up most of your energy recently?",
	},
	"high": {
		"How are you feeling right now, today?",
		"Who do you have around you at the moment for support?",
		"Have you had any thoughts of harming yourself?",
	},
}

// StaticBriefer builds a briefing from the answers alone. It never fails and
// is the last link of the fallback chain.
type StaticBriefer struct{}

var _ Briefer = StaticBriefer{}

func (StaticBriefer) Brief(_ context.Context, in BriefingInput) (Briefing, error) {
	name := in.StudentName
	if name == "" {
		name = "The student"
	}
	summary := fmt.Sprintf("%s scored %d out of %d on the wellbeing check-in, in the %s band.",
		name, in.TotalScore, in.MaxScore, in.RiskLevel)

	high := make([]AnswerLine, 0, len(in.Answers))
	for _, a := range in.Answers {
		if a.Score >= concernThreshold {
			high = append(high, a)
		}
	}
	sort.SliceStable(high, func(i, j int) bool { return high[i].Score > high[j].Score })

	var concerns []string
	for _, a := range high {
		if len(concerns) == 3 {
			break
		}
		concerns = append(concerns, fmt.Sprintf("%s: %s", a.Prompt, a.Label))
	}
	if len(concerns) == 0 {
		summary += " No individual area scored above several days."
	}

	return Briefing{
		Summary:          summary,
		Concerns:         concerns,
		OpeningQuestions: append([]string(nil), openers[in.RiskLevel]...),
	}, nil
}
