package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

// UserRepository reads caller identities from the user/session
// directory. Signup, login, and session issuance happen elsewhere;
// this service only resolves tokens to users.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository using the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns one user, or nil if unknown.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, elevated, created_at FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.Email, &u.Elevated, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindWrite, "get user", err)
	}
	return &u, nil
}

// GetBySessionToken resolves a non-expired session token to its user,
// or nil when the token is unknown or expired.
func (r *UserRepository) GetBySessionToken(ctx context.Context, token string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.elevated, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`, token).Scan(
		&u.ID, &u.Email, &u.Elevated, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindWrite, "resolve session", err)
	}
	return &u, nil
}
