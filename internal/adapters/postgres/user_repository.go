package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// UserRepository reads accounts for sign-in.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new Postgres-backed user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail loads an account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
