// Package ports defines the interfaces (ports) for the booking service.
// These are contracts that adapters must implement.
package ports

import (
	"context"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// BookingRepository persists bookings with their embedded payment record.
type BookingRepository interface {
	// Create stores a new booking. Returns domain.ErrBookingConflict when an
	// active booking overlaps the same subject/category window.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID returns domain.ErrBookingNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// Update overwrites the stored booking state, guarded by the lifecycle
	// status the caller read: the write applies only while the stored status
	// still equals from, otherwise domain.ErrStaleBooking is returned and
	// nothing is written. This is what arbitrates the cancel/confirm race -
	// the store decides, never the last writer.
	Update(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error

	// Delete removes a booking record entirely (history removal).
	Delete(ctx context.Context, id string) error
}

// UserRepository resolves accounts for sign-in.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PaymentGateway creates provider-hosted payment sessions.
type PaymentGateway interface {
	// CreateCheckout requests a redirect-based checkout for the booking's
	// charge. returnURL is where the provider sends the browser afterwards.
	CreateCheckout(ctx context.Context, booking *domain.Booking, returnURL string) (*domain.CheckoutSession, error)
}

// EventPublisher emits domain events for downstream consumers. Publish
// failures must never fail the operation that produced the event.
type EventPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, event domain.PaymentConfirmedEvent) error
}
