package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicClient_ParsesFencedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("api key header: %q", r.Header.Get("x-api-key"))
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"` +
			"```json\\n{\\\"summary\\\":\\\"Struggling with sleep.\\\",\\\"concerns\\\":[\\\"sleep\\\"],\\\"opening_questions\\\":[\\\"How are nights?\\\"]}\\n```" +
			`"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "model").(*anthropicClient)
	c.endpoint = srv.URL

	b, err := c.Brief(context.Background(), BriefingInput{RiskLevel: "moderate"})
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if b.Summary != "Struggling with sleep." || len(b.Concerns) != 1 || len(b.OpeningQuestions) != 1 {
		t.Errorf("briefing: %+v", b)
	}
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "model").(*anthropicClient)
	c.endpoint = srv.URL

	_, err := c.Brief(context.Background(), BriefingInput{})
	if err == nil || !strings.Contains(err.Error(), "rate_limit_error") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestDeepSeekClient_EmptySummaryIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("auth header: %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewDeepSeekClient("k", "deepseek-chat").(*deepseekClient)
	c.endpoint = srv.URL

	if _, err := c.Brief(context.Background(), BriefingInput{}); err == nil {
		t.Fatal("expected error for empty summary")
	}
}

func TestBuildPrompt_IncludesAnswers(t *testing.T) {
	p := buildPrompt(BriefingInput{
		StudentName: "Ama",
		YearOfStudy: 2,
		TotalScore:  9,
		MaxScore:    18,
		RiskLevel:   "moderate",
		Answers:     []AnswerLine{{QuestionID: "sleep", Prompt: "Trouble sleeping", Label: "Several days", Score: 1}},
	})
	for _, want := range []string{"Student: Ama", "Year of study: 2", "9/18 (moderate)", "answer: Several days (1/3)"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestPostJSON_NonJSONErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type: %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	var out completionResponse
	err := postJSON(context.Background(), srv.Client(), srv.URL, nil, map[string]string{}, &out)
	if err == nil || !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("expected status error, got %v", err)
	}
}
