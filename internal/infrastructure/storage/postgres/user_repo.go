package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/id"
	"quimstock/internal/domain/auth"
)

const (
	usersTable         = "users"
	userAreasTable     = "user_areas"
	refreshTokensTable = "refresh_tokens"
)

var userColumns = []string{
	"id", "username", "email", "password_hash",
	"active", "failed_logins", "locked_until", "last_login_at",
	"created_at", "updated_at",
}

// UserRepo implements auth.UserRepository and auth.TokenRepository.
type UserRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID, user.Username, user.Email, user.PasswordHash,
			user.Active, user.FailedLogins, user.LockedUntil, user.LastLoginAt,
			user.CreatedAt, user.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": userID}, userID.String())
}

// GetByUsername loads a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username}, username)
}

func (r *UserRepo) getBy(ctx context.Context, where squirrel.Eq, key string) (*auth.User, error) {
	q := r.builder.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Exists reports whether a username is taken.
func (r *UserRepo) Exists(ctx context.Context, username string) (bool, error) {
	sql := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &exists, sql, username); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Update persists account state changes.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.builder.Update(usersTable).
		Set("email", user.Email).
		Set("password_hash", user.PasswordHash).
		Set("active", user.Active).
		Set("failed_logins", user.FailedLogins).
		Set("locked_until", user.LockedUntil).
		Set("last_login_at", user.LastLoginAt).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// List returns all users ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]auth.User, error) {
	q := r.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("username")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var users []auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &users, sql, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

// SetAreas replaces the user's area scope.
func (r *UserRepo) SetAreas(ctx context.Context, userID id.ID, areas []string) error {
	querier := r.txManager.GetQuerier(ctx)

	dq := r.builder.Delete(userAreasTable).Where(squirrel.Eq{"user_id": userID})
	sql, args, err := dq.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear user areas: %w", err)
	}

	if len(areas) == 0 {
		return nil
	}

	iq := r.builder.Insert(userAreasTable).Columns("user_id", "area")
	for _, area := range areas {
		iq = iq.Values(userID, area)
	}
	sql, args, err = iq.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user areas: %w", err)
	}
	return nil
}

// LoadAreas returns the user's area tags.
func (r *UserRepo) LoadAreas(ctx context.Context, userID id.ID) ([]string, error) {
	q := r.builder.Select("area").
		From(userAreasTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("area")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var areas []string
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &areas, sql, args...); err != nil {
		return nil, fmt.Errorf("select user areas: %w", err)
	}
	return areas, nil
}

// SaveRefreshToken stores a hashed refresh token.
func (r *UserRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	q := r.builder.Insert(refreshTokensTable).
		Columns("id", "user_id", "token_hash", "expires_at", "revoked_at", "revoke_reason", "created_at").
		Values(token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.RevokedAt, token.RevokeReason, token.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks a token up by hash.
func (r *UserRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	q := r.builder.Select("id", "user_id", "token_hash", "expires_at", "revoked_at", "revoke_reason", "created_at").
		From(refreshTokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var token auth.RefreshToken
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &token, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh token", "")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &token, nil
}

// RevokeRefreshToken marks one token revoked.
func (r *UserRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	return r.revokeTokens(ctx, squirrel.Eq{"id": tokenID}, reason)
}

// RevokeAllUserTokens marks all of a user's tokens revoked.
func (r *UserRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	return r.revokeTokens(ctx, squirrel.Eq{"user_id": userID}, reason)
}

func (r *UserRepo) revokeTokens(ctx context.Context, where squirrel.Eq, reason string) error {
	q := r.builder.Update(refreshTokensTable).
		Set("revoked_at", time.Now().UTC()).
		Set("revoke_reason", reason).
		Where(where).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}
