package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
)

// UsersRepository persists accounts.
type UsersRepository struct {
	conn
}

// UserCreateParams bundles the fields required to register a user. The hash
// is computed by the caller.
type UserCreateParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// Create inserts a user. A taken username or email yields domain.ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (user domain.User, err error) {
	defer observe("users", "create", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING user_id, username, email, password_hash, created_at
    `
	err = r.pool.QueryRow(ctx, query, params.Username, params.Email, params.PasswordHash).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", classify(err))
	}
	return user, nil
}

// GetByUsername fetches a user by its unique username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (user domain.User, err error) {
	defer observe("users", "get", time.Now(), &err)
	ctx, cancel := r.roundTrip(ctx)
	defer cancel()

	const query = `
        SELECT user_id, username, email, password_hash, created_at
        FROM users
        WHERE username = $1
    `
	err = r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", classify(err))
	}
	return user, nil
}
