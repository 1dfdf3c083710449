// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation plus a log-only fallback for local
// development.
package email

import (
	"context"
	"log/slog"
)

// WelcomeParams holds the data for the post-signup welcome email.
type WelcomeParams struct {
	To       string
	FullName string
	Role     string // "student" or "counsellor"
}

// AssessmentSummaryParams holds the data for the assessment summary email
// the worker sends after a follow-up completes.
type AssessmentSummaryParams struct {
	To              string
	FullName        string
	TotalScore      int
	MaxScore        int
	RiskLevel       string
	Recommendations string
	DetailedAdvice  []string
	ShowCrisis      bool // high risk: include crisis contacts
}

// ContactForwardParams is a contact-form submission forwarded to support.
type ContactForwardParams struct {
	To        string // support inbox
	FromName  string
	FromEmail string
	Subject   string
	Message   string
}

// Sender is the interface the worker and handlers use to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	SendWelcome(ctx context.Context, p WelcomeParams) error
	SendAssessmentSummary(ctx context.Context, p AssessmentSummaryParams) error
	SendContactForward(ctx context.Context, p ContactForwardParams) error
}

// logSender writes every email to the logger instead of sending it. Used when
// no Resend API key is configured.
type logSender struct {
	logger *slog.Logger
}

// NewLogSender returns a Sender that only logs.
func NewLogSender(logger *slog.Logger) Sender {
	return &logSender{logger: logger}
}

func (s *logSender) SendWelcome(_ context.Context, p WelcomeParams) error {
	s.logger.Info("email: welcome (not sent)", "to", p.To, "role", p.Role)
	return nil
}

func (s *logSender) SendAssessmentSummary(_ context.Context, p AssessmentSummaryParams) error {
	s.logger.Info("email: assessment summary (not sent)", "to", p.To, "risk_level", p.RiskLevel)
	return nil
}

func (s *logSender) SendContactForward(_ context.Context, p ContactForwardParams) error {
	s.logger.Info("email: contact forward (not sent)", "to", p.To, "from", p.FromEmail, "subject", p.Subject)
	return nil
}
