package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are assisting a university counsellor who is about to meet a student.
You will receive the student's answers to a six-question wellbeing check-in. Each question is scored 0 (not at all) to 3 (nearly every day), and the overall result is banded low, moderate or high.

Write a short, neutral briefing for the counsellor. Do not diagnose. Do not address the student directly.

Produce:
1. summary: 2-3 sentences on how the student appears to be doing overall.
2. concerns: up to 3 short phrases naming the areas that scored highest, most severe first. Empty if nothing scored above 1.
3. opening_questions: 2-3 gentle, open questions the counsellor could start the conversation with.

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{
  "summary": "...",
  "concerns": ["..."],
  "opening_questions": ["..."]
}`

// briefingJSON is the shape the model is prompted to answer in.
type briefingJSON struct {
	Summary          string   `json:"summary"`
	Concerns         []string `json:"concerns"`
	OpeningQuestions []string `json:"opening_questions"`
}

// buildPrompt serialises the assessment into a compact prompt string.
func buildPrompt(in BriefingInput) string {
	var sb strings.Builder
	name := in.StudentName
	if name == "" {
		name = "the student"
	}
	fmt.Fprintf(&sb, "Student: %s\n", name)
	if in.University != "" {
		fmt.Fprintf(&sb, "University: %s\n", in.University)
	}
	if in.YearOfStudy > 0 {
		fmt.Fprintf(&sb, "Year of study: %d\n", in.YearOfStudy)
	}
	fmt.Fprintf(&sb, "Total score: %d/%d (%s)\n\n", in.TotalScore, in.MaxScore, in.RiskLevel)

	for _, a := range in.Answers {
		fmt.Fprintf(&sb, "question_id: %s\n", a.QuestionID)
		fmt.Fprintf(&sb, "question: %s\n", a.Prompt)
		fmt.Fprintf(&sb, "answer: %s (%d/3)\n", a.Label, a.Score)
		sb.WriteString("---\n")
	}
	return sb.String()
}

// parseBriefing strips any accidental markdown fences and decodes the model
// output.
func parseBriefing(raw string) (Briefing, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed briefingJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Briefing{}, fmt.Errorf("parse response JSON: %w (raw: %.200s)", err, raw)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return Briefing{}, fmt.Errorf("parse response JSON: empty summary")
	}
	return Briefing{
		Summary:          parsed.Summary,
		Concerns:         parsed.Concerns,
		OpeningQuestions: parsed.OpeningQuestions,
	}, nil
}
