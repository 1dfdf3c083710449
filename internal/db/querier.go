package db

import (
	"context"

	"github.com/google/uuid"
)

// Querier is every single-statement operation the service performs.
type Querier interface {
	// accounts
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (User, error)

	// profiles
	CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error)
	UpdateProfile(ctx context.Context, arg UpdateProfileParams) (Profile, error)
	ListCounsellors(ctx context.Context) ([]Profile, error)

	// assessments
	InsertAssessment(ctx context.Context, arg InsertAssessmentParams) (Assessment, error)
	GetAssessmentByID(ctx context.Context, id uuid.UUID) (Assessment, error)
	GetLatestAssessmentByUser(ctx context.Context, userID uuid.UUID) (Assessment, error)
	ListAssessmentsByUser(ctx context.Context, arg ListAssessmentsByUserParams) ([]Assessment, error)
	ListPendingFollowUps(ctx context.Context, limit int32) ([]Assessment, error)
	SetAssessmentBriefing(ctx context.Context, arg SetAssessmentBriefingParams) (Assessment, error)
	SetFollowUpError(ctx context.Context, arg SetFollowUpErrorParams) (Assessment, error)

	// counselling sessions
	CreateSession(ctx context.Context, arg CreateSessionParams) (CounsellingSession, error)
	GetActiveSession(ctx context.Context, arg GetActiveSessionParams) (CounsellingSession, error)
	GetSessionByID(ctx context.Context, id uuid.UUID) (CounsellingSession, error)
	ListSessionsForUser(ctx context.Context, userID uuid.UUID) ([]ListSessionsForUserRow, error)
	EndSession(ctx context.Context, id uuid.UUID) (CounsellingSession, error)

	// messages
	InsertMessage(ctx context.Context, arg InsertMessageParams) (Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (Message, error)
	ListMessages(ctx context.Context, arg ListMessagesParams) ([]Message, error)
	Notify(ctx context.Context, channel, payload string) error

	// contact
	InsertContactMessage(ctx context.Context, arg InsertContactMessageParams) (ContactMessage, error)
}

var _ Querier = (*Queries)(nil)
