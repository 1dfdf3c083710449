package ai

import (
	"context"
	"fmt"
	"log/slog"
)

// fallbackBriefer wraps two Briefer implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the secondary.
type fallbackBriefer struct {
	primary   Briefer
	secondary Briefer
	logger    *slog.Logger
}

// NewFallbackBriefer returns a Briefer that calls primary and, on failure,
// falls back to secondary. If primary is nil it goes straight to secondary;
// if secondary is nil and primary fails, the primary error is returned.
func NewFallbackBriefer(primary, secondary Briefer, logger *slog.Logger) Briefer {
	return &fallbackBriefer{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *fallbackBriefer) Brief(ctx context.Context, in BriefingInput) (Briefing, error) {
	if f.primary != nil {
		b, err := f.primary.Brief(ctx, in)
		if err == nil {
			return b, nil
		}
		f.logger.Warn("ai: primary briefer failed, trying secondary",
			"error", err,
			"risk_level", in.RiskLevel,
		)
		if f.secondary == nil {
			return Briefing{}, fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
	}
	if f.secondary == nil {
		return Briefing{}, fmt.Errorf("ai: no briefer configured")
	}
	return f.secondary.Brief(ctx, in)
}
