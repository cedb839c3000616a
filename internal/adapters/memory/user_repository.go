package memory

import (
	"context"
	"sync"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// UserRepository keeps accounts in memory, keyed by email.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

// Add registers an account.
func (r *UserRepository) Add(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.Email] = u
}

// GetByEmail looks an account up by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	out := u
	return &out, nil
}
