package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetActiveByEmail looks up an active user by login email. Inactive users are
// filtered in the query so they are indistinguishable from missing ones.
// Returns sql.ErrNoRows when no active user matches.
func (r *Repository) GetActiveByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, is_active, created_at
		FROM users
		WHERE email = $1 AND is_active = TRUE
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}

	return user, nil
}

// GetActiveByID resolves the user behind a verified token. Returns
// sql.ErrNoRows when the user is gone or deactivated.
func (r *Repository) GetActiveByID(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, is_active, created_at
		FROM users
		WHERE id = $1 AND is_active = TRUE
	`, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}

	return user, nil
}

// UpsertAdmin creates or refreshes the env-seeded admin account. This is the
// only write path into the users table this service owns; everything else is
// provisioned out of band.
func (r *Repository) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, 'admin', TRUE, $3, $3)
		ON CONFLICT (email)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = 'admin',
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
	`, email, passwordHash, now)
	if err != nil {
		return fmt.Errorf("upsert admin user: %w", err)
	}

	return nil
}
