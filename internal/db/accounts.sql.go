package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, password_hash, role)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, role, created_at
`

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         UserRole
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.queryRow(ctx, createUser, arg.Email, arg.PasswordHash, arg.Role)
	return scanUser(row)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, password_hash, role, created_at
FROM users
WHERE email = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.queryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, email, password_hash, role, created_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.queryRow(ctx, getUserByID, id))
}

const updateUserPassword = `-- name: UpdateUserPassword :one
UPDATE users SET password_hash = $2
WHERE id = $1
RETURNING id, email, password_hash, role, created_at
`

type UpdateUserPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (User, error) {
	return scanUser(q.queryRow(ctx, updateUserPassword, arg.ID, arg.PasswordHash))
}

func scanUser(row *sql.Row) (User, error) {
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Role, &i.CreatedAt)
	return i, err
}

// ─── PROFILES ─────────────────────────────────────────────────────────────────

const profileColumns = `user_id, full_name, university, year_of_study, bio, avatar_url, specialisations, created_at, updated_at`

const createProfile = `-- name: CreateProfile :one
INSERT INTO profiles (user_id, full_name)
VALUES ($1, $2)
RETURNING ` + profileColumns

type CreateProfileParams struct {
	UserID   uuid.UUID
	FullName string
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	return scanProfile(q.queryRow(ctx, createProfile, arg.UserID, arg.FullName))
}

const getProfile = `-- name: GetProfile :one
SELECT ` + profileColumns + `
FROM profiles
WHERE user_id = $1
`

func (q *Queries) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	return scanProfile(q.queryRow(ctx, getProfile, userID))
}

const updateProfile = `-- name: UpdateProfile :one
UPDATE profiles SET
    full_name       = $2,
    university      = $3,
    year_of_study   = $4,
    bio             = $5,
    avatar_url      = $6,
    specialisations = $7,
    updated_at      = now()
WHERE user_id = $1
RETURNING ` + profileColumns

// UpdateProfileParams replaces every editable column. Callers merge a partial
// patch onto the current row before calling UpdateProfile.
type UpdateProfileParams struct {
	UserID          uuid.UUID
	FullName        string
	University      sql.NullString
	YearOfStudy     sql.NullInt16
	Bio             sql.NullString
	AvatarUrl       sql.NullString
	Specialisations []string
}

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (Profile, error) {
	specs := arg.Specialisations
	if specs == nil {
		specs = []string{}
	}
	row := q.queryRow(ctx, updateProfile,
		arg.UserID,
		arg.FullName,
		arg.University,
		arg.YearOfStudy,
		arg.Bio,
		arg.AvatarUrl,
		pq.Array(specs),
	)
	return scanProfile(row)
}

const listCounsellors = `-- name: ListCounsellors :many
SELECT p.user_id, p.full_name, p.university, p.year_of_study, p.bio, p.avatar_url, p.specialisations, p.created_at, p.updated_at
FROM profiles p
JOIN users u ON u.id = p.user_id
WHERE u.role = 'counsellor'
ORDER BY p.full_name
`

func (q *Queries) ListCounsellors(ctx context.Context) ([]Profile, error) {
	rows, err := q.query(ctx, listCounsellors)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Profile
	for rows.Next() {
		var i Profile
		if err := rows.Scan(
			&i.UserID, &i.FullName, &i.University, &i.YearOfStudy, &i.Bio,
			&i.AvatarUrl, pq.Array(&i.Specialisations), &i.CreatedAt, &i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanProfile(row *sql.Row) (Profile, error) {
	var i Profile
	err := row.Scan(
		&i.UserID, &i.FullName, &i.University, &i.YearOfStudy, &i.Bio,
		&i.AvatarUrl, pq.Array(&i.Specialisations), &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}
