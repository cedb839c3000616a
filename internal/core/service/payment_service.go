package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/ports"
)

// InitiateResult is the outcome of starting a payment. Exactly one branch is
// populated: Immediate for cash, RedirectURL for the gateway handoff.
type InitiateResult struct {
	Immediate    bool   `json:"immediate"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	PreferenceID string `json:"preference_id,omitempty"`
}

// PaymentService starts payments for bookings. After the gateway branch
// returns, the browser leaves the app; nothing here runs until the provider
// redirects back.
type PaymentService struct {
	repo      ports.BookingRepository
	gateway   ports.PaymentGateway
	returnURL string
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service. returnURL is where the
// provider sends the browser after checkout.
func NewPaymentService(repo ports.BookingRepository, gateway ports.PaymentGateway, returnURL string, logger *zap.Logger) *PaymentService {
	return &PaymentService{repo: repo, gateway: gateway, returnURL: returnURL, logger: logger}
}

// Initiate starts the payment for a booking.
//
// Cash bookings terminate here with no provider involvement at all: the
// booking stays pending/pending and is surfaced to the operator for manual
// settlement. Gateway bookings get a provider checkout session; initiating
// again for the same booking is safe - a fresh provider intent replaces the
// old one and nothing is charged until the member completes exactly one of
// them.
func (s *PaymentService) Initiate(ctx context.Context, bookingID string) (*InitiateResult, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Payment.Status == domain.PaymentStatusCompleted {
		return nil, domain.NewServiceError(domain.ErrInvalidTransition,
			"booking is already paid", "ALREADY_PAID")
	}
	if booking.Status == domain.BookingStatusCancelled {
		return nil, domain.NewServiceError(domain.ErrInvalidTransition,
			"cancelled booking cannot be paid", "BOOKING_CANCELLED")
	}

	if booking.Payment.Method == domain.PaymentMethodCash {
		return &InitiateResult{Immediate: true}, nil
	}

	returnURL := fmt.Sprintf("%s?booking_id=%s", s.returnURL, booking.ID)
	session, err := s.gateway.CreateCheckout(ctx, booking, returnURL)
	if err != nil {
		s.logger.Error("checkout creation failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, domain.NewServiceError(domain.ErrPaymentGatewayError,
			"failed to create payment session", "GATEWAY_ERROR")
	}

	booking.Payment.PreferenceID = session.PreferenceID
	if err := s.repo.Update(ctx, booking, booking.Status); err != nil {
		if errors.Is(err, domain.ErrStaleBooking) {
			// The booking moved on while the provider session was created;
			// the new session is simply never handed to the browser.
			return nil, domain.NewServiceError(domain.ErrInvalidTransition,
				"booking changed during payment initiation", "BOOKING_CHANGED")
		}
		return nil, err
	}

	s.logger.Info("payment session created",
		zap.String("booking_id", booking.ID),
		zap.String("preference_id", session.PreferenceID))

	return &InitiateResult{
		RedirectURL:  session.RedirectURL,
		PreferenceID: session.PreferenceID,
	}, nil
}
