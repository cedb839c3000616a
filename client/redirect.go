package client

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// ConfirmationOutcome is what the return page can honestly tell the user
// after the provider redirects back.
type ConfirmationOutcome string

const (
	// ConfirmedByServer means the backend verified and persisted the payment.
	ConfirmedByServer ConfirmationOutcome = "confirmed_by_server"
	// ConfirmedByClient means the provider reported success but verification
	// could not be completed; the payment is shown as confirmed while the
	// backend record may still be pending. Re-run verification with the
	// retained attempt to converge.
	ConfirmedByClient ConfirmationOutcome = "confirmed_by_client"
	// ConfirmationProcessing means the provider has not settled yet.
	ConfirmationProcessing ConfirmationOutcome = "processing"
	// ConfirmationFailed means the payment was rejected or the redirect was
	// unusable.
	ConfirmationFailed ConfirmationOutcome = "failed"
)

// ConfirmationResult carries the outcome plus everything the return page
// needs: the booking as last known, and the attempt tuple to retain for
// manual re-verification when the outcome is not ConfirmedByServer.
type ConfirmationResult struct {
	Outcome        ConfirmationOutcome
	Booking        *domain.Booking
	TransactionRef string
	Attempt        domain.ReconciliationAttempt
	Err            error
}

// ParseReturn extracts a reconciliation attempt from the query parameters
// the provider appends on redirect. The transaction reference arrives under
// either payment_id or collection_id depending on checkout flavor; amounts
// are in minor units. Missing fields are left zero, Confirm decides what is
// fatal.
func ParseReturn(q url.Values) domain.ReconciliationAttempt {
	ref := q.Get("payment_id")
	if ref == "" || ref == "null" {
		ref = q.Get("collection_id")
	}
	if ref == "null" {
		ref = ""
	}

	status := q.Get("status")
	if status == "" {
		status = q.Get("collection_status")
	}

	attempt := domain.ReconciliationAttempt{
		TransactionRef: ref,
		BookingID:      q.Get("external_reference"),
		ProviderStatus: status,
	}

	switch q.Get("subject") {
	case string(domain.SubjectTrainer):
		attempt.Subject = domain.SubjectTrainer
	case string(domain.SubjectGym):
		attempt.Subject = domain.SubjectGym
	default:
		// Older return URLs only carry the order label; infer from it.
		if strings.Contains(strings.ToLower(q.Get("order_label")), "trainer") {
			attempt.Subject = domain.SubjectTrainer
		} else {
			attempt.Subject = domain.SubjectGym
		}
	}

	if raw := q.Get("amount"); raw != "" {
		if minor, err := strconv.ParseInt(raw, 10, 64); err == nil {
			attempt.Amount = float64(minor) / 100
		}
	}
	return attempt
}

// Confirm handles the provider redirect end to end: parse the query, verify
// with the backend, and map the result to a user-facing outcome. It never
// panics on a mangled redirect and never claims server confirmation it did
// not get.
func (c *Client) Confirm(ctx context.Context, q url.Values) ConfirmationResult {
	attempt := ParseReturn(q)
	if attempt.TransactionRef == "" || attempt.BookingID == "" {
		return ConfirmationResult{
			Outcome: ConfirmationFailed,
			Attempt: attempt,
			Err:     domain.ErrMissingConfirmation,
		}
	}

	booking, err := c.VerifyPayment(ctx, attempt)
	if err != nil {
		// An explicit backend rejection means the claim was checked and found
		// wrong; that is a failure, not an unverified success.
		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) {
			return ConfirmationResult{
				Outcome:        ConfirmationFailed,
				TransactionRef: attempt.TransactionRef,
				Attempt:        attempt,
				Err:            err,
			}
		}
		// Verification could not complete at all. The provider's own claim is
		// the only signal left: a success claim is surfaced optimistically,
		// anything else is a failure with the reference kept for support.
		if domain.ClassifyProviderStatus(attempt.ProviderStatus) == domain.ProviderStatusSuccess {
			return ConfirmationResult{
				Outcome:        ConfirmedByClient,
				TransactionRef: attempt.TransactionRef,
				Attempt:        attempt,
				Err:            err,
			}
		}
		return ConfirmationResult{
			Outcome:        ConfirmationFailed,
			TransactionRef: attempt.TransactionRef,
			Attempt:        attempt,
			Err:            err,
		}
	}

	result := ConfirmationResult{
		Booking:        booking,
		TransactionRef: attempt.TransactionRef,
		Attempt:        attempt,
	}
	switch {
	case booking.Payment.Status == domain.PaymentStatusCompleted:
		result.Outcome = ConfirmedByServer
	case booking.Payment.Status == domain.PaymentStatusFailed:
		result.Outcome = ConfirmationFailed
	default:
		result.Outcome = ConfirmationProcessing
	}
	return result
}
