// Package memory provides in-memory repository implementations for tests and
// local development.
package memory

import (
	"context"
	"sync"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// BookingRepository keeps bookings in a map guarded by a mutex. It applies
// the same overlap-conflict rule as the Postgres implementation.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

// NewBookingRepository creates an empty in-memory booking repository.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[string]domain.Booking)}
}

// Create stores a booking, rejecting overlaps with active bookings.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.Status != domain.BookingStatusPending &&
			existing.Status != domain.BookingStatusConfirmed {
			continue
		}
		e := existing
		if b.Overlaps(&e) {
			return domain.ErrBookingConflict
		}
	}

	r.bookings[b.ID] = *b
	return nil
}

// GetByID returns a copy of the stored booking.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	out := b
	return &out, nil
}

// Update overwrites the stored booking, but only while its stored status
// still matches the one the caller read.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if stored.Status != from {
		return domain.ErrStaleBooking
	}
	r.bookings[b.ID] = *b
	return nil
}

// Delete removes the stored booking.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return domain.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}
