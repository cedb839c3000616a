// Package service implements the core business logic.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/ports"
)

// BookingService owns booking creation and lifecycle rules. It is the
// authority for the price: the client's quote is advisory and discarded here.
type BookingService struct {
	repo   ports.BookingRepository
	logger *zap.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(repo ports.BookingRepository, logger *zap.Logger) *BookingService {
	return &BookingService{repo: repo, logger: logger}
}

// Create builds a pending booking from a draft, recomputes the charge and
// persists it. The payment sub-record always starts pending regardless of
// method; method only decides what happens after creation.
func (s *BookingService) Create(ctx context.Context, userID string, draft domain.BookingDraft) (*domain.Booking, error) {
	charge, err := domain.ChargeFor(draft)
	if err != nil {
		return nil, err
	}

	booking, err := domain.NewBooking(userID, draft, charge)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if err == domain.ErrBookingConflict {
			// Surfaced verbatim; the caller decides, never an automatic retry.
			return nil, domain.NewServiceError(domain.ErrBookingConflict,
				"an active booking already occupies this slot", "BOOKING_CONFLICT")
		}
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("subject", string(booking.Subject)),
		zap.Float64("amount", booking.Charge.Amount),
		zap.String("method", string(booking.Payment.Method)))

	return booking, nil
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

// Cancel cancels a pending booking on behalf of its owner. The store decides
// the race against a concurrent confirmation: the guarded update applies only
// while the booking is still pending, and a stale write re-reads so the rule
// runs against whatever won.
func (s *BookingService) Cancel(ctx context.Context, id, userID string) (*domain.Booking, error) {
	for attempt := 0; ; attempt++ {
		booking, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := booking.Cancel(userID); err != nil {
			return nil, err
		}
		err = s.repo.Update(ctx, booking, domain.BookingStatusPending)
		if err == nil {
			s.logger.Info("booking cancelled", zap.String("booking_id", id))
			return booking, nil
		}
		if !errors.Is(err, domain.ErrStaleBooking) || attempt > 0 {
			return nil, err
		}
	}
}

// Remove deletes a completed or cancelled booking from history.
func (s *BookingService) Remove(ctx context.Context, id, userID string) error {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return domain.NewServiceError(domain.ErrForbidden,
			"booking belongs to another user", "FORBIDDEN")
	}
	if !booking.Removable() {
		return domain.NewServiceError(domain.ErrNotRemovable,
			"only completed or cancelled bookings can be removed", "NOT_REMOVABLE")
	}
	return s.repo.Delete(ctx, id)
}

// SetStatus applies an operator status change.
func (s *BookingService) SetStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	readStatus := booking.Status

	switch status {
	case domain.BookingStatusCompleted:
		if err := booking.Complete(); err != nil {
			return nil, err
		}
	case domain.BookingStatusCancelled:
		if err := booking.Cancel(booking.UserID); err != nil {
			return nil, err
		}
	case domain.BookingStatusConfirmed:
		if booking.Status != domain.BookingStatusPending {
			return nil, domain.NewServiceError(domain.ErrInvalidTransition,
				"only pending bookings can be confirmed", "INVALID_TRANSITION")
		}
		booking.Status = domain.BookingStatusConfirmed
	default:
		return nil, domain.NewServiceError(domain.ErrInvalidTransition,
			"unsupported target status", "INVALID_TRANSITION")
	}

	if err := s.repo.Update(ctx, booking, readStatus); err != nil {
		return nil, err
	}
	s.logger.Info("booking status set by operator",
		zap.String("booking_id", id), zap.String("status", string(status)))
	return booking, nil
}

// SettleCash marks a cash payment as collected (operator action). This is the
// only path that completes a cash payment; the verifier refuses them.
func (s *BookingService) SettleCash(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	readStatus := booking.Status
	if err := booking.SettleCash(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, booking, readStatus); err != nil {
		return nil, err
	}
	s.logger.Info("cash payment settled", zap.String("booking_id", id))
	return booking, nil
}
