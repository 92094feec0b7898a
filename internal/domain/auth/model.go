// Package auth provides authentication and authorization domain logic.
package auth

import (
	"time"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
)

// User is an operator account. Areas carries the tags of the areas the user
// may act on; everything else about authorization derives from that scope.
type User struct {
	ID           id.ID  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`

	Areas []string `db:"-" json:"areas"`

	Active       bool       `db:"active" json:"active"`
	FailedLogins int        `db:"failed_logins" json:"-"`
	LockedUntil  *time.Time `db:"locked_until" json:"-"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewUser creates an active user with no area scope yet.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Scope parses the stored area tags into a capability scope.
func (u *User) Scope() security.Scope {
	return security.ScopeFromStrings(u.Areas)
}

// CanLogin checks account state before password verification.
func (u *User) CanLogin() error {
	if !u.Active {
		return apperror.NewForbidden("account is disabled")
	}
	if u.LockedUntil != nil && u.LockedUntil.After(time.Now()) {
		return apperror.NewForbidden("account is temporarily locked").
			WithDetail("locked_until", u.LockedUntil)
	}
	return nil
}

// RecordFailedLogin bumps the failure counter and locks the account once the
// limit is hit.
func (u *User) RecordFailedLogin(maxAttempts int, lockDuration time.Duration) {
	u.FailedLogins++
	if u.FailedLogins >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.LockedUntil = &until
	}
	u.UpdatedAt = time.Now().UTC()
}

// RecordSuccessfulLogin resets the failure state.
func (u *User) RecordSuccessfulLogin() {
	now := time.Now().UTC()
	u.FailedLogins = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Credentials is a login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest creates a new operator account.
type RegisterRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Areas    []string `json:"areas"`
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID           id.ID      `db:"id" json:"id"`
	UserID       id.ID      `db:"user_id" json:"userId"`
	TokenHash    string     `db:"token_hash" json:"-"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expiresAt"`
	RevokedAt    *time.Time `db:"revoked_at" json:"-"`
	RevokeReason string     `db:"revoke_reason" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// IsValid reports whether the token is neither revoked nor expired.
func (t *RefreshToken) IsValid() bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(time.Now())
}
