package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// Quote computes the advisory price for a slot from the static rate table.
// Purely for display before submission; the backend recomputes the charge
// and its figure is the one persisted.
func (c *Client) Quote(subject domain.SubjectType, category string, durationMin int) (domain.Quote, error) {
	return domain.QuoteFor(subject, category, durationMin)
}

type createBookingRequest struct {
	Subject     string  `json:"subject"`
	Category    string  `json:"category"`
	StartsAt    string  `json:"starts_at"`
	DurationMin int     `json:"duration_min"`
	Method      string  `json:"method"`
	QuotedPrice float64 `json:"quoted_price"`
}

type bookingResponse struct {
	Success bool            `json:"success"`
	Booking *domain.Booking `json:"booking"`
}

// CreateBooking submits a draft and returns the durable booking the backend
// created. The booking always comes back pending/pending regardless of
// payment method; method selection only decides what InitiatePayment does
// next. An overlapping slot surfaces as domain.ErrBookingConflict, verbatim,
// never retried here.
func (c *Client) CreateBooking(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	quote, err := domain.QuoteFor(draft.Subject, draft.Category, draft.DurationMin)
	if err != nil {
		return nil, err
	}
	if draft.StartsAt.IsZero() {
		return nil, domain.NewServiceError(domain.ErrInvalidBooking,
			"start time is required", "VALIDATION_ERROR")
	}
	if !domain.ValidMethod(draft.Method) {
		return nil, domain.NewServiceError(domain.ErrInvalidBooking,
			"unknown payment method", "VALIDATION_ERROR")
	}

	var resp bookingResponse
	err = c.do(ctx, http.MethodPost, "/api/v1/bookings", domain.RoleUser,
		createBookingRequest{
			Subject:     string(draft.Subject),
			Category:    draft.Category,
			StartsAt:    draft.StartsAt.Format(time.RFC3339),
			DurationMin: draft.DurationMin,
			Method:      string(draft.Method),
			QuotedPrice: quote.Amount,
		}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Booking, nil
}

// Booking fetches the current state of a booking.
func (c *Client) Booking(ctx context.Context, id string) (*domain.Booking, error) {
	var resp bookingResponse
	path := fmt.Sprintf("/api/v1/bookings/%s", id)
	if err := c.do(ctx, http.MethodGet, path, domain.RoleUser, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Booking, nil
}

// CancelBooking cancels a pending booking. The affordance check here mirrors
// the backend rule, but the backend's answer is the one that matters: a
// reconciliation racing this call may confirm the booking first.
func (c *Client) CancelBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	if booking.Status != domain.BookingStatusPending {
		return nil, domain.NewServiceError(domain.ErrNotCancellable,
			"only pending bookings can be cancelled", "NOT_CANCELLABLE")
	}
	var resp bookingResponse
	path := fmt.Sprintf("/api/v1/bookings/%s/cancel", booking.ID)
	if err := c.do(ctx, http.MethodPost, path, domain.RoleUser, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Booking, nil
}

// RemoveBooking deletes a completed or cancelled booking from history.
func (c *Client) RemoveBooking(ctx context.Context, booking *domain.Booking) error {
	if !booking.Removable() {
		return domain.NewServiceError(domain.ErrNotRemovable,
			"only completed or cancelled bookings can be removed", "NOT_REMOVABLE")
	}
	path := fmt.Sprintf("/api/v1/bookings/%s", booking.ID)
	return c.do(ctx, http.MethodDelete, path, domain.RoleUser, nil, nil)
}
