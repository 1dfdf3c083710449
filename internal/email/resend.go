package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "care@portal.example.edu"
	fromName   string // e.g. "Student Counselling"
	baseURL    string // portal URL used in links
	endpoint   string
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName, baseURL string) Sender {
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: resendEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendWelcome greets a new account.
func (c *resendClient) SendWelcome(ctx context.Context, p WelcomeParams) error {
	subject := "Welcome to Student Counselling"
	return c.send(ctx, resendRequest{
		To:      []string{p.To},
		Subject: subject,
		HTML:    welcomeHTML(p, c.baseURL),
	})
}

// SendAssessmentSummary sends the student a copy of their result.
func (c *resendClient) SendAssessmentSummary(ctx context.Context, p AssessmentSummaryParams) error {
	return c.send(ctx, resendRequest{
		To:      []string{p.To},
		Subject: "Your wellbeing check-in summary",
		HTML:    summaryHTML(p, c.baseURL),
	})
}

// SendContactForward relays a contact-form message to the support inbox.
// Replies go straight to the sender.
func (c *resendClient) SendContactForward(ctx context.Context, p ContactForwardParams) error {
	return c.send(ctx, resendRequest{
		To:      []string{p.To},
		Subject: "[Contact] " + p.Subject,
		HTML:    contactHTML(p),
		ReplyTo: p.FromEmail,
	})
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, reqBody resendRequest) error {
	reqBody.From = fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

const footer = `<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    Student Counselling Portal · Confidential support for students
  </p>`

func greeting(name string) string {
	if name == "" {
		return "Hello"
	}
	return "Hello " + html.EscapeString(name)
}

func welcomeHTML(p WelcomeParams, baseURL string) string {
	intro := `You can take a short wellbeing check-in at any time and start a chat or
  video session with a counsellor whenever you are ready.`
	if p.Role == "counsellor" {
		intro = `Your counsellor account is active. Students who start a session with you
  will appear on your dashboard along with their latest check-in briefing.`
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Welcome</h2>
  <p>%s,</p>
  <p>%s</p>
  <p style="margin: 32px 0;">
    <a href="%s" style="background: #0f766e; color: #ffffff; padding: 12px 24px;
       border-radius: 6px; text-decoration: none; font-weight: 600;">Open the portal</a>
  </p>
  %s
</body>
</html>`, greeting(p.FullName), intro, baseURL, footer)
}

func summaryHTML(p AssessmentSummaryParams, baseURL string) string {
	var advice strings.Builder
	for _, a := range p.DetailedAdvice {
		advice.WriteString("<li>" + html.EscapeString(a) + "</li>")
	}

	crisis := ""
	if p.ShowCrisis {
		crisis = `<div style="border: 2px solid #dc2626; border-radius: 6px; padding: 16px; margin: 24px 0;">
    <strong>If you are in crisis, please reach out now.</strong>
    <p>Call your local emergency number, call or text 988, or text HOME to 741741.
    These services are free and available 24/7.</p>
  </div>`
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Your check-in summary</h2>
  <p>%s,</p>
  <p>You scored <strong>%d out of %d</strong>, which we describe as
  <strong>%s</strong>.</p>
  %s
  <p>%s</p>
  <ul>%s</ul>
  <p style="margin: 32px 0;">
    <a href="%s/sessions" style="background: #0f766e; color: #ffffff; padding: 12px 24px;
       border-radius: 6px; text-decoration: none; font-weight: 600;">Talk to a counsellor</a>
  </p>
  %s
</body>
</html>`,
		greeting(p.FullName),
		p.TotalScore, p.MaxScore,
		html.EscapeString(p.RiskLevel),
		crisis,
		html.EscapeString(p.Recommendations),
		advice.String(),
		baseURL,
		footer,
	)
}

func contactHTML(p ContactForwardParams) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <p><strong>From:</strong> %s &lt;%s&gt;</p>
  <p><strong>Subject:</strong> %s</p>
  <pre style="white-space: pre-wrap; font-family: inherit;">%s</pre>
</body>
</html>`,
		html.EscapeString(p.FromName),
		html.EscapeString(p.FromEmail),
		html.EscapeString(p.Subject),
		html.EscapeString(p.Message),
	)
}
