package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestDB returns a *sql.DB from DATABASE_URL with the schema applied.
// Skips if the env var is not set so the suite still passes without Postgres.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	ctx := context.Background()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	if _, err := pool.ExecContext(ctx, db.Schema); err != nil {
		pool.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// seedAccount creates a user with a profile and removes it (cascading to its
// assessments, sessions and messages) when the test finishes.
func seedAccount(t *testing.T, pool *sql.DB, st *store.Store, role db.UserRole, name string) db.User {
	t.Helper()
	ctx := context.Background()
	email := fmt.Sprintf("%s.%s@example.com", strings.ToLower(name), uuid.NewString()[:8])
	u, _, err := st.CreateAccount(ctx, store.CreateAccountParams{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Role:         role,
		FullName:     name,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	t.Cleanup(func() { _, _ = pool.ExecContext(ctx, "DELETE FROM users WHERE id=$1", u.ID) })
	return u
}

func newStore(pool *sql.DB) *store.Store {
	return store.New(pool, db.New(pool))
}

// ─── CreateAccount ────────────────────────────────────────────────────────────

func TestCreateAccount_CreatesUserAndProfile(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	u := seedAccount(t, pool, st, db.UserRoleStudent, "Ada")

	profile, err := st.Q().GetProfile(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.FullName != "Ada" {
		t.Errorf("full name: got %q", profile.FullName)
	}
	if u.Role != db.UserRoleStudent {
		t.Errorf("role: got %s", u.Role)
	}
}

func TestCreateAccount_DuplicateEmailReturnsErrEmailTaken(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	u := seedAccount(t, pool, st, db.UserRoleStudent, "Grace")

	_, _, err := st.CreateAccount(ctx, store.CreateAccountParams{
		Email:        strings.ToUpper(u.Email),
		PasswordHash: "x",
		Role:         db.UserRoleStudent,
		FullName:     "Grace Again",
	})
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got: %v", err)
	}
}

// ─── SaveAssessment ───────────────────────────────────────────────────────────

func TestSaveAssessment_PersistsPendingFollowUp(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	u := seedAccount(t, pool, st, db.UserRoleStudent, "Alan")

	bank := assessment.DefaultBank()
	answers := assessment.AnswerSet{"sleep": 3, "anxiety": 3, "mood": 2, "concentration": 2, "social": 1, "energy": 1}
	result := assessment.Score(bank, answers)

	row, err := st.SaveAssessment(ctx, assessment.NewSubmission(u.ID, answers, result))
	if err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}
	if row.TotalScore != 12 {
		t.Errorf("total score: got %d, want 12", row.TotalScore)
	}
	if row.RiskLevel != db.RiskLevelModerate {
		t.Errorf("risk level: got %s", row.RiskLevel)
	}
	if row.FollowupStatus != db.FollowupStatusPending {
		t.Errorf("followup status: got %s", row.FollowupStatus)
	}

	got, err := store.DecodeAnswers(row)
	if err != nil {
		t.Fatalf("DecodeAnswers: %v", err)
	}
	if got["sleep"] != 3 || len(got) != 6 {
		t.Errorf("answers round trip: %v", got)
	}
	advice, err := store.DecodeAdvice(row)
	if err != nil {
		t.Fatalf("DecodeAdvice: %v", err)
	}
	if len(advice) != len(result.DetailedAdvice) {
		t.Errorf("advice: got %d items, want %d", len(advice), len(result.DetailedAdvice))
	}
}

func TestCompleteFollowUp_StoresBriefing(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	u := seedAccount(t, pool, st, db.UserRoleStudent, "Barbara")
	answers := assessment.AnswerSet{"sleep": 0, "anxiety": 0, "mood": 0, "concentration": 0, "social": 0, "energy": 0}
	row, err := st.SaveAssessment(ctx, assessment.NewSubmission(u.ID, answers, assessment.Score(assessment.DefaultBank(), answers)))
	if err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}

	done, err := st.CompleteFollowUp(ctx, row.ID, "Student reports no current concerns.")
	if err != nil {
		t.Fatalf("CompleteFollowUp: %v", err)
	}
	if done.FollowupStatus != db.FollowupStatusDone {
		t.Errorf("status: got %s", done.FollowupStatus)
	}
	if done.Briefing.String != "Student reports no current concerns." {
		t.Errorf("briefing: %+v", done.Briefing)
	}
}

func TestMarkFollowUpFailed_SetsErrorStatus(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	u := seedAccount(t, pool, st, db.UserRoleStudent, "Edsger")
	answers := assessment.AnswerSet{"sleep": 3, "anxiety": 3, "mood": 3, "concentration": 3, "social": 3, "energy": 3}
	row, err := st.SaveAssessment(ctx, assessment.NewSubmission(u.ID, answers, assessment.Score(assessment.DefaultBank(), answers)))
	if err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}

	if err := st.MarkFollowUpFailed(ctx, row.ID, errors.New("email provider down")); err != nil {
		t.Fatalf("MarkFollowUpFailed: %v", err)
	}
	got, err := st.Q().GetAssessmentByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetAssessmentByID: %v", err)
	}
	if got.FollowupStatus != db.FollowupStatusError {
		t.Errorf("status: got %s", got.FollowupStatus)
	}
	if got.FollowupError.String != "email provider down" {
		t.Errorf("error: %+v", got.FollowupError)
	}
}

// ─── StartSession ─────────────────────────────────────────────────────────────

func TestStartSession_CreatesThenReuses(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	student := seedAccount(t, pool, st, db.UserRoleStudent, "Student")
	counsellor := seedAccount(t, pool, st, db.UserRoleCounsellor, "Counsellor")

	params := store.StartSessionParams{
		StudentID:    student.ID,
		CounsellorID: counsellor.ID,
		Kind:         db.SessionKindVideo,
		VideoBaseURL: "https://meet.example.com/",
	}

	first, created, err := st.StartSession(ctx, params)
	if err != nil {
		t.Fatalf("first StartSession: %v", err)
	}
	if !created {
		t.Error("expected first call to create")
	}
	if want := "https://meet.example.com/" + first.ID.String(); first.RoomUrl.String != want {
		t.Errorf("room url: got %q, want %q", first.RoomUrl.String, want)
	}

	second, created, err := st.StartSession(ctx, params)
	if err != nil {
		t.Fatalf("second StartSession: %v", err)
	}
	if created {
		t.Error("expected second call to reuse")
	}
	if second.ID != first.ID {
		t.Errorf("session id: got %s, want %s", second.ID, first.ID)
	}
}

func TestStartSession_ChatHasNoRoomURL(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	student := seedAccount(t, pool, st, db.UserRoleStudent, "Student")
	counsellor := seedAccount(t, pool, st, db.UserRoleCounsellor, "Counsellor")

	s, _, err := st.StartSession(ctx, store.StartSessionParams{
		StudentID:    student.ID,
		CounsellorID: counsellor.ID,
		Kind:         db.SessionKindChat,
		VideoBaseURL: "https://meet.example.com",
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if s.RoomUrl.Valid {
		t.Errorf("chat session should have no room url, got %q", s.RoomUrl.String)
	}
}

func TestStartSession_RejectsNonCounsellor(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	a := seedAccount(t, pool, st, db.UserRoleStudent, "A")
	b := seedAccount(t, pool, st, db.UserRoleStudent, "B")

	_, _, err := st.StartSession(ctx, store.StartSessionParams{
		StudentID: a.ID, CounsellorID: b.ID, Kind: db.SessionKindChat,
	})
	if !errors.Is(err, store.ErrNotCounsellor) {
		t.Errorf("expected ErrNotCounsellor, got: %v", err)
	}
}

// ─── SendMessage / EndSession ─────────────────────────────────────────────────

func TestSendMessage_ParticipantAndEndedChecks(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)
	ctx := context.Background()

	student := seedAccount(t, pool, st, db.UserRoleStudent, "Student")
	counsellor := seedAccount(t, pool, st, db.UserRoleCounsellor, "Counsellor")
	outsider := seedAccount(t, pool, st, db.UserRoleStudent, "Outsider")

	session, _, err := st.StartSession(ctx, store.StartSessionParams{
		StudentID: student.ID, CounsellorID: counsellor.ID, Kind: db.SessionKindChat,
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	msg, err := st.SendMessage(ctx, store.SendMessageParams{SessionID: session.ID, SenderID: student.ID, Body: "hello"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Body != "hello" {
		t.Errorf("body: got %q", msg.Body)
	}

	_, err = st.SendMessage(ctx, store.SendMessageParams{SessionID: session.ID, SenderID: outsider.ID, Body: "hi"})
	if !errors.Is(err, store.ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got: %v", err)
	}

	if _, err := st.EndSession(ctx, session.ID, counsellor.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	// Ending twice is a no-op.
	ended, err := st.EndSession(ctx, session.ID, student.ID)
	if err != nil {
		t.Fatalf("second EndSession: %v", err)
	}
	if ended.Status != db.SessionStatusEnded || !ended.EndedAt.Valid {
		t.Errorf("ended session: %+v", ended)
	}

	_, err = st.SendMessage(ctx, store.SendMessageParams{SessionID: session.ID, SenderID: student.ID, Body: "still there?"})
	if !errors.Is(err, store.ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded, got: %v", err)
	}

	msgs, err := st.Q().ListMessages(ctx, db.ListMessagesParams{SessionID: session.ID, Limit: 50})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("messages: got %d, want 1", len(msgs))
	}
}

func TestSendMessage_UnknownSession(t *testing.T) {
	pool := openTestDB(t)
	st := newStore(pool)

	_, err := st.SendMessage(context.Background(), store.SendMessageParams{
		SessionID: uuid.New(), SenderID: uuid.New(), Body: "x",
	})
	if !store.IsNotFound(err) {
		t.Errorf("expected not found, got: %v", err)
	}
}
