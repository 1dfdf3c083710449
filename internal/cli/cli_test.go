package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/auth"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubCreator struct {
	got store.CreateAccountParams
	err error
}

func (s *stubCreator) CreateAccount(_ context.Context, p store.CreateAccountParams) (db.User, db.Profile, error) {
	s.got = p
	if s.err != nil {
		return db.User{}, db.Profile{}, s.err
	}
	return db.User{ID: uuid.New(), Email: p.Email, Role: p.Role}, db.Profile{FullName: p.FullName}, nil
}

type stubUpdater struct {
	users   map[string]db.User
	updated db.UpdateUserPasswordParams
}

func (s *stubUpdater) GetUserByEmail(_ context.Context, addr string) (db.User, error) {
	u, ok := s.users[addr]
	if !ok {
		return db.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUpdater) UpdateUserPassword(_ context.Context, p db.UpdateUserPasswordParams) (db.User, error) {
	s.updated = p
	for _, u := range s.users {
		if u.ID == p.ID {
			u.PasswordHash = p.PasswordHash
			return u, nil
		}
	}
	return db.User{}, sql.ErrNoRows
}

// ─── ROOT ─────────────────────────────────────────────────────────────────────

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "portalctl" {
		t.Errorf("Expected Use to be 'portalctl', got '%s'", cmd.Use)
	}

	want := map[string]bool{"migrate": false, "add-counsellor": false, "reset-password": false, "questions": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestMigrateRequiresDatabase(t *testing.T) {
	_, err := execute(t, "", "migrate")
	if !errors.Is(err, errNoDatabase) {
		t.Fatalf("expected errNoDatabase, got %v", err)
	}
}

func TestAddCounsellorRequiresFlags(t *testing.T) {
	_, err := execute(t, "longenough\n", "add-counsellor", "--email", "dr@example.edu")
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected missing --name error, got %v", err)
	}
}

// ─── questions ────────────────────────────────────────────────────────────────

func TestQuestionsCommandPrintsBank(t *testing.T) {
	out, err := execute(t, "", "questions")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	for _, q := range assessment.DefaultBank().Questions() {
		if !strings.Contains(out, q.Prompt) {
			t.Errorf("output missing question %s", q.ID)
		}
	}
	for _, want := range []string{"Nearly every day", "Maximum score: 18", "low", "high"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScoreBands(t *testing.T) {
	bands := scoreBands(assessment.DefaultBank())
	want := []scoreBand{
		{level: assessment.RiskLow, from: 0, to: 5},
		{level: assessment.RiskModerate, from: 6, to: 10},
		{level: assessment.RiskHigh, from: 11, to: 18},
	}
	if len(bands) != len(want) {
		t.Fatalf("bands: %+v", bands)
	}
	for i := range want {
		if bands[i] != want[i] {
			t.Errorf("band %d: got %+v, want %+v", i, bands[i], want[i])
		}
	}
}

// ─── accounts ─────────────────────────────────────────────────────────────────

func TestAddCounsellor(t *testing.T) {
	st := &stubCreator{}
	user, err := addCounsellor(context.Background(), st, "dr.naidoo@example.edu", "Dr Naidoo", "correct horse")
	if err != nil {
		t.Fatalf("addCounsellor: %v", err)
	}
	if user.Role != db.UserRoleCounsellor || st.got.Role != db.UserRoleCounsellor {
		t.Errorf("role: %q", st.got.Role)
	}
	if st.got.PasswordHash == "correct horse" || !auth.CheckPassword(st.got.PasswordHash, "correct horse") {
		t.Error("password should be stored as a bcrypt hash")
	}
}

func TestAddCounsellorRejectsBadInput(t *testing.T) {
	tests := []struct {
		name, addr, fullName, pwd string
	}{
		{"short password", "dr@example.edu", "Dr", "short"},
		{"long password", "dr@example.edu", "Dr", strings.Repeat("x", 73)},
		{"blank name", "dr@example.edu", "  ", "longenough"},
		{"bad email", "not-an-email", "Dr", "longenough"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &stubCreator{}
			if _, err := addCounsellor(context.Background(), st, tt.addr, tt.fullName, tt.pwd); err == nil {
				t.Fatal("expected an error")
			}
			if st.got.Email != "" {
				t.Error("nothing should be created")
			}
		})
	}
}

func TestAddCounsellorEmailTaken(t *testing.T) {
	st := &stubCreator{err: store.ErrEmailTaken}
	_, err := addCounsellor(context.Background(), st, "dr@example.edu", "Dr", "longenough")
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	id := uuid.New()
	q := &stubUpdater{users: map[string]db.User{"kofi@example.edu": {ID: id, Email: "kofi@example.edu"}}}

	if _, err := resetPassword(context.Background(), q, " Kofi@Example.edu ", "new-password"); err != nil {
		t.Fatalf("resetPassword: %v", err)
	}
	if q.updated.ID != id || !auth.CheckPassword(q.updated.PasswordHash, "new-password") {
		t.Errorf("updated: %+v", q.updated)
	}

	if _, err := resetPassword(context.Background(), q, "ghost@example.edu", "new-password"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestPromptPasswordReadsLineFromPipe(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("hunter2hunter2\r\nignored\n"))
	pwd, err := promptPassword(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if pwd != "hunter2hunter2" {
		t.Errorf("password: %q", pwd)
	}
}
