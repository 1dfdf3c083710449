package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ─── ENUMS ────────────────────────────────────────────────────────────────────

type UserRole string

const (
	UserRoleStudent    UserRole = "student"
	UserRoleCounsellor UserRole = "counsellor"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelModerate RiskLevel = "moderate"
	RiskLevelHigh     RiskLevel = "high"
)

type FollowupStatus string

const (
	FollowupStatusPending FollowupStatus = "pending"
	FollowupStatusDone    FollowupStatus = "done"
	FollowupStatusError   FollowupStatus = "error"
)

type SessionKind string

const (
	SessionKindChat  SessionKind = "chat"
	SessionKindVideo SessionKind = "video"
)

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// ─── ROWS ─────────────────────────────────────────────────────────────────────

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
}

type Profile struct {
	UserID          uuid.UUID
	FullName        string
	University      sql.NullString
	YearOfStudy     sql.NullInt16
	Bio             sql.NullString
	AvatarUrl       sql.NullString
	Specialisations []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Assessment struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TotalScore      int16
	RiskLevel       RiskLevel
	Answers         json.RawMessage
	Recommendations string
	DetailedAdvice  pqtype.NullRawMessage
	Briefing        sql.NullString
	FollowupStatus  FollowupStatus
	FollowupError   sql.NullString
	CreatedAt       time.Time
}

type CounsellingSession struct {
	ID           uuid.UUID
	StudentID    uuid.UUID
	CounsellorID uuid.UUID
	Kind         SessionKind
	Status       SessionStatus
	RoomUrl      sql.NullString
	CreatedAt    time.Time
	EndedAt      sql.NullTime
}

// IsParticipant reports whether userID is the student or the counsellor.
func (s CounsellingSession) IsParticipant(userID uuid.UUID) bool {
	return s.StudentID == userID || s.CounsellorID == userID
}

type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	SenderID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

type ContactMessage struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

// ListSessionsForUserRow is a session joined with both participants' names.
type ListSessionsForUserRow struct {
	CounsellingSession
	StudentName    string
	CounsellorName string
}
