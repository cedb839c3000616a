package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/ports"
)

// reconcileMarkTTL bounds how long an applied transaction reference is
// remembered for the concurrency guard. Repository state remains the durable
// idempotence check after expiry.
const reconcileMarkTTL = 24 * time.Hour

// ReconcileService converges a booking's local payment state with what the
// provider reported. Verify is safe to call at any point in or after the
// booking/payment window, arbitrarily many times.
type ReconcileService struct {
	repo      ports.BookingRepository
	rdb       *redis.Client
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewReconcileService creates a new reconciliation service.
func NewReconcileService(repo ports.BookingRepository, rdb *redis.Client, publisher ports.EventPublisher, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{repo: repo, rdb: rdb, publisher: publisher, logger: logger}
}

// Verify cross-checks a provider transaction against a booking and advances
// booking/payment status to a converged state. Calling it twice with the same
// transaction reference applies no second effect; each call returns the
// current converged booking.
func (s *ReconcileService) Verify(ctx context.Context, attempt domain.ReconciliationAttempt) (*domain.Booking, error) {
	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	booking, err := s.repo.GetByID(ctx, attempt.BookingID)
	if err != nil {
		return nil, err
	}

	if booking.Payment.Method == domain.PaymentMethodCash {
		return nil, domain.NewServiceError(domain.ErrCashNotReconcilable,
			"cash bookings are settled by an operator", "CASH_NOT_RECONCILABLE")
	}

	// Terminal protection: a cancelled booking or an already-completed
	// payment is returned as-is. This is the repeat-call path.
	if booking.Status == domain.BookingStatusCancelled ||
		booking.Payment.Status == domain.PaymentStatusCompleted {
		return booking, nil
	}

	switch domain.ClassifyProviderStatus(attempt.ProviderStatus) {
	case domain.ProviderStatusSuccess:
		return s.applySuccess(ctx, booking, attempt)
	case domain.ProviderStatusFailed:
		readStatus := booking.Status
		booking.FailPayment(attempt.TransactionRef)
		if err := s.repo.Update(ctx, booking, readStatus); err != nil {
			if errors.Is(err, domain.ErrStaleBooking) {
				return s.repo.GetByID(ctx, booking.ID)
			}
			return nil, err
		}
		s.logger.Info("payment marked failed",
			zap.String("booking_id", booking.ID),
			zap.String("transaction_ref", attempt.TransactionRef))
		return booking, nil
	default:
		// Processing or unknown: nothing to apply yet. The booking stays
		// pending, which is valid state for an unbounded window.
		return booking, nil
	}
}

func (s *ReconcileService) applySuccess(ctx context.Context, booking *domain.Booking, attempt domain.ReconciliationAttempt) (*domain.Booking, error) {
	if attempt.Amount > 0 && domain.MinorUnits(attempt.Amount) != domain.MinorUnits(booking.Charge.Amount) {
		s.logger.Warn("claimed amount disagrees with charge",
			zap.String("booking_id", booking.ID),
			zap.String("transaction_ref", attempt.TransactionRef),
			zap.Float64("claimed", attempt.Amount),
			zap.Float64("charged", booking.Charge.Amount))
		return nil, domain.NewServiceError(domain.ErrAmountMismatch,
			fmt.Sprintf("provider claims %.2f, charge is %.2f (ref %s)",
				attempt.Amount, booking.Charge.Amount, attempt.TransactionRef),
			"AMOUNT_MISMATCH")
	}

	// Reserve the transaction reference so two racing verifies cannot both
	// apply. Losing the race means the winner already converged the booking;
	// re-read and return that state.
	key := fmt.Sprintf("recon:txn:%s", attempt.TransactionRef)
	acquired, err := s.rdb.SetNX(ctx, key, booking.ID, reconcileMarkTTL).Result()
	if err != nil {
		// The repository status check above stays authoritative; losing the
		// guard degrades concurrency protection, not correctness of repeats.
		s.logger.Warn("idempotency reservation unavailable",
			zap.String("transaction_ref", attempt.TransactionRef), zap.Error(err))
	} else if !acquired {
		return s.repo.GetByID(ctx, booking.ID)
	}

	readStatus := booking.Status
	if err := booking.ConfirmPayment(attempt.TransactionRef); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, booking, readStatus); err != nil {
		if errors.Is(err, domain.ErrStaleBooking) {
			// A cancel (or another transition) won the store; hand back the
			// state it decided on instead of overwriting it.
			return s.repo.GetByID(ctx, booking.ID)
		}
		return nil, err
	}

	s.logger.Info("payment reconciled",
		zap.String("booking_id", booking.ID),
		zap.String("transaction_ref", attempt.TransactionRef),
		zap.Float64("amount", booking.Payment.Amount))

	event := domain.PaymentConfirmedEvent{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		Subject:        booking.Subject,
		TransactionRef: attempt.TransactionRef,
		Amount:         booking.Payment.Amount,
		Currency:       booking.Charge.Currency,
		ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishPaymentConfirmed(ctx, event); err != nil {
		// Downstream consumers catch up later; the verify itself stands.
		s.logger.Warn("event publish failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
	}

	return booking, nil
}
