package auth

import (
	"context"

	"quimstock/internal/core/id"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context) ([]User, error)

	// SetAreas replaces the user's area scope.
	SetAreas(ctx context.Context, userID id.ID, areas []string) error
	// LoadAreas returns the user's area tags.
	LoadAreas(ctx context.Context, userID id.ID) ([]string, error)
}

// TokenRepository defines refresh token persistence operations.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error
}
