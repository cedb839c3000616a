package client

import (
	"context"
	"net/http"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// InitiateOutcome is the result of starting a payment. Immediate means the
// cash path: nothing left to do online, the operator settles it in person.
// Otherwise RedirectURL is where to send the browser; control leaves the app
// there and only the provider's redirect brings it back.
type InitiateOutcome struct {
	Immediate   bool
	RedirectURL string
}

type initiateRequest struct {
	BookingID string `json:"booking_id"`
}

type initiateResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Immediate    bool   `json:"immediate"`
		RedirectURL  string `json:"redirect_url"`
		PreferenceID string `json:"preference_id"`
	} `json:"result"`
}

// InitiatePayment starts payment for a booking. The cash branch makes no
// network call at all - not to the provider, not to the backend; the booking
// is already pending/pending and that is its terminal client-side state
// until an operator settles it. Initiating a gateway payment twice for the
// same booking is safe; the backend issues a fresh provider intent without
// double-charging.
func (c *Client) InitiatePayment(ctx context.Context, booking *domain.Booking) (*InitiateOutcome, error) {
	if booking.Payment.Method == domain.PaymentMethodCash {
		return &InitiateOutcome{Immediate: true}, nil
	}

	var resp initiateResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/payments/initiate", domain.RoleUser,
		initiateRequest{BookingID: booking.ID}, &resp)
	if err != nil {
		return nil, err
	}
	return &InitiateOutcome{
		Immediate:   resp.Result.Immediate,
		RedirectURL: resp.Result.RedirectURL,
	}, nil
}

type verifyRequest struct {
	TransactionRef string  `json:"transaction_ref"`
	BookingID      string  `json:"booking_id"`
	Subject        string  `json:"subject"`
	Amount         float64 `json:"amount"`
	ProviderStatus string  `json:"provider_status"`
}

// VerifyPayment runs one reconciliation pass against the backend. Safe to
// call repeatedly with the same transaction reference; each call returns the
// current converged booking.
func (c *Client) VerifyPayment(ctx context.Context, attempt domain.ReconciliationAttempt) (*domain.Booking, error) {
	if err := attempt.Validate(); err != nil {
		return nil, err
	}
	var resp bookingResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/payments/verify", domain.RoleUser,
		verifyRequest{
			TransactionRef: attempt.TransactionRef,
			BookingID:      attempt.BookingID,
			Subject:        string(attempt.Subject),
			Amount:         attempt.Amount,
			ProviderStatus: attempt.ProviderStatus,
		}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Booking, nil
}

// ResendVerification manually nudges reconciliation for a gateway booking
// observed stuck at pending. It re-runs the identical idempotent verify with
// the tuple retained from the provider's redirect; there is no automatic
// retry loop to wait for.
func (c *Client) ResendVerification(ctx context.Context, attempt domain.ReconciliationAttempt) (*domain.Booking, error) {
	return c.VerifyPayment(ctx, attempt)
}
