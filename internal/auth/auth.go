// Package auth issues and verifies the bearer tokens the API uses, and hashes
// account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role mirrors the user_role enum.
type Role string

const (
	RoleStudent    Role = "student"
	RoleCounsellor Role = "counsellor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleCounsellor
}

const issuer = "counselling-portal"

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token expired")
)

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. ttl is the lifetime of every issued token.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the user.
func (i *Issuer) Issue(userID uuid.UUID, role Role) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns the identity it carries.
func (i *Issuer) Parse(token string) (Identity, error) {
	claims := &Claims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	if claims.Issuer != issuer || !claims.Role.Valid() {
		return Identity{}, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Role: claims.Role}, nil
}

// ─── PASSWORDS ────────────────────────────────────────────────────────────────

// HashPassword returns the bcrypt hash of pwd.
func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether pwd matches hash.
func CheckPassword(hash, pwd string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd)) == nil
}
