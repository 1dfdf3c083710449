package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
)

func newQuestionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "Print the assessment questions and how scores map to risk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBank(cmd.OutOrStdout(), assessment.DefaultBank())
			return nil
		},
	}
}

func printBank(w io.Writer, b *assessment.Bank) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	for i, q := range b.Questions() {
		bold.Fprintf(w, "%d. [%s] ", i+1, q.ID)
		fmt.Fprintln(w, q.Prompt)
		for _, o := range q.Options {
			faint.Fprintf(w, "     %d  %s\n", o.Score, o.Label)
		}
	}

	fmt.Fprintf(w, "\nMaximum score: %d\n", b.MaxScore())
	for _, band := range scoreBands(b) {
		levelColor(band.level).Fprintf(w, "  %-9s %d-%d\n", band.level, band.from, band.to)
	}
}

type scoreBand struct {
	level    assessment.RiskLevel
	from, to int
}

// scoreBands lists the total-score range that lands in each risk level.
func scoreBands(b *assessment.Bank) []scoreBand {
	var bands []scoreBand
	for score := 0; score <= b.MaxScore(); score++ {
		level := assessment.Classify(float64(score) / float64(b.MaxScore()) * 100)
		if n := len(bands); n > 0 && bands[n-1].level == level {
			bands[n-1].to = score
			continue
		}
		bands = append(bands, scoreBand{level: level, from: score, to: score})
	}
	return bands
}

func levelColor(l assessment.RiskLevel) *color.Color {
	switch l {
	case assessment.RiskLow:
		return color.New(color.FgGreen)
	case assessment.RiskModerate:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
