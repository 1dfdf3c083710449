package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so tests start from a known state.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ENV", "BASE_URL", "DATABASE_URL", "JWT_SECRET", "TOKEN_TTL_HOURS",
		"VIDEO_BASE_URL", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "DEEPSEEK_API_KEY",
		"DEEPSEEK_MODEL", "RESEND_API_KEY", "EMAIL_FROM_ADDR", "EMAIL_FROM_NAME",
		"SUPPORT_EMAIL", "WORKER_COUNT", "POLL_INTERVAL", "JOB_TIMEOUT", "MAX_RETRIES",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Keep a stray .env in the package dir from leaking in.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("JWT_SECRET", "dev-secret")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != "8080" || c.Env != "development" {
		t.Errorf("server defaults: %+v", c)
	}
	if c.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL: got %v", c.TokenTTL)
	}
	if c.WorkerCount != 2 || c.MaxRetries != 3 || c.PollInterval != 30*time.Second {
		t.Errorf("worker defaults: %+v", c)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"DATABASE_URL", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_ProductionRules(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://db/portal")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET must be at least") {
		t.Errorf("missing secret length error: %v", err)
	}
	if !strings.Contains(err.Error(), "RESEND_API_KEY") {
		t.Errorf("missing resend error: %v", err)
	}
}

func TestLoad_DotEnvDoesNotOverrideRealEnv(t *testing.T) {
	clearEnv(t)
	dir, _ := os.Getwd()
	body := "# comment\nexport DATABASE_URL=\"postgres://from-file/portal\"\nJWT_SECRET='file-secret'\nPORT=9000\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DatabaseURL != "postgres://from-file/portal" || c.JWTSecret != "file-secret" {
		t.Errorf("dotenv values not applied: %+v", c)
	}
	if c.Port != "7000" {
		t.Errorf("real env should win, got port %q", c.Port)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		key, value string
		want       time.Duration
	}{
		{"TOKEN_TTL_HOURS", "12", 12 * time.Hour},
		{"POLL_INTERVAL", "45", 45 * time.Second},
		{"JOB_TIMEOUT", "90s", 90 * time.Second},
		{"JOB_TIMEOUT", "nonsense", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if got := getEnvAsDuration(tt.key, time.Minute); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
