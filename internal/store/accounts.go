package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CreateAccountParams is the sign-up payload after the password is hashed.
type CreateAccountParams struct {
	Email        string
	PasswordHash string
	Role         db.UserRole
	FullName     string
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrEmailTaken is returned by CreateAccount when the email is already
// registered. Handlers map it to 409.
var ErrEmailTaken = errors.New("store: email already registered")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CreateAccount inserts the user and its empty profile in one transaction, so
// there is never a user without a profile row.
func (s *Store) CreateAccount(ctx context.Context, p CreateAccountParams) (db.User, db.Profile, error) {
	var (
		user    db.User
		profile db.Profile
	)

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		u, err := q.CreateUser(ctx, db.CreateUserParams{
			Email:        strings.ToLower(strings.TrimSpace(p.Email)),
			PasswordHash: p.PasswordHash,
			Role:         p.Role,
		})
		if err != nil {
			if isPQCode(err, pqUniqueViolation) {
				return ErrEmailTaken
			}
			return fmt.Errorf("CreateAccount: create user: %w", err)
		}

		pr, err := q.CreateProfile(ctx, db.CreateProfileParams{
			UserID:   u.ID,
			FullName: strings.TrimSpace(p.FullName),
		})
		if err != nil {
			return fmt.Errorf("CreateAccount: create profile: %w", err)
		}

		user, profile = u, pr
		return nil
	})

	// Sentinel errors are returned bare so callers can compare with errors.Is
	// without digging through the rollback wrapper.
	if errors.Is(err, ErrEmailTaken) {
		return db.User{}, db.Profile{}, ErrEmailTaken
	}
	if err != nil {
		return db.User{}, db.Profile{}, err
	}
	return user, profile, nil
}
