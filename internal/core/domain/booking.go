package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubjectType distinguishes a gym-slot booking from a trainer-slot booking.
type SubjectType string

const (
	SubjectGym     SubjectType = "gym"
	SubjectTrainer SubjectType = "trainer"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BookingDraft is what a member submits to reserve a slot. The charge is
// recomputed server-side; any client figure is advisory only.
type BookingDraft struct {
	Subject     SubjectType   `json:"subject"`
	Category    string        `json:"category"`
	StartsAt    time.Time     `json:"starts_at"`
	DurationMin int           `json:"duration_min"`
	Method      PaymentMethod `json:"method"`
}

// Booking represents a reserved gym or trainer slot with its payment
// sub-record. Confirmed and completed bookings are immutable with respect to
// cancellation; only the owner may cancel, and only while pending.
type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Subject     SubjectType   `json:"subject"`
	Category    string        `json:"category"`
	StartsAt    time.Time     `json:"starts_at"`
	DurationMin int           `json:"duration_min"`
	Charge      Charge        `json:"charge"`
	Status      BookingStatus `json:"status"`
	Payment     Payment       `json:"payment"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewBooking builds a pending booking from a draft and the authoritative
// charge. Payment always starts pending regardless of method, so a
// half-completed gateway flow can never leave a false-confirmed record.
func NewBooking(userID string, draft BookingDraft, charge Charge) (*Booking, error) {
	if userID == "" {
		return nil, NewServiceError(ErrInvalidBooking, "user id is required", "VALIDATION_ERROR")
	}
	if draft.Subject != SubjectGym && draft.Subject != SubjectTrainer {
		return nil, NewServiceError(ErrInvalidBooking, "subject must be gym or trainer", "VALIDATION_ERROR")
	}
	if draft.StartsAt.IsZero() {
		return nil, NewServiceError(ErrInvalidBooking, "start time is required", "VALIDATION_ERROR")
	}
	if draft.DurationMin <= 0 {
		return nil, NewServiceError(ErrInvalidBooking, "duration must be positive", "VALIDATION_ERROR")
	}
	if !ValidMethod(draft.Method) {
		return nil, NewServiceError(ErrInvalidBooking, "unknown payment method", "VALIDATION_ERROR")
	}

	now := time.Now().UTC()
	return &Booking{
		ID:          uuid.New().String(),
		UserID:      userID,
		Subject:     draft.Subject,
		Category:    draft.Category,
		StartsAt:    draft.StartsAt.UTC(),
		DurationMin: draft.DurationMin,
		Charge:      charge,
		Status:      BookingStatusPending,
		Payment: Payment{
			Method: draft.Method,
			Status: PaymentStatusPending,
			Amount: charge.Amount,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// EndsAt returns the end of the schedule window.
func (b *Booking) EndsAt() time.Time {
	return b.StartsAt.Add(time.Duration(b.DurationMin) * time.Minute)
}

// Overlaps reports whether two bookings contend for the same slot.
func (b *Booking) Overlaps(other *Booking) bool {
	if b.Subject != other.Subject || b.Category != other.Category {
		return false
	}
	return b.StartsAt.Before(other.EndsAt()) && other.StartsAt.Before(b.EndsAt())
}

// ConfirmPayment records a completed payment and, if the booking is still
// pending, advances it to confirmed. It never moves a cancelled or completed
// booking backward; re-applying the same transaction is a no-op.
func (b *Booking) ConfirmPayment(transactionRef string) error {
	if b.Payment.Status == PaymentStatusCompleted {
		return nil
	}
	if b.Status == BookingStatusCancelled {
		return NewServiceError(ErrBookingNotReconcilable,
			"cancelled booking cannot accept a payment", "BOOKING_CANCELLED")
	}
	now := time.Now().UTC()
	b.Payment.Status = PaymentStatusCompleted
	b.Payment.TransactionRef = transactionRef
	b.Payment.ProcessedAt = &now
	if b.Status == BookingStatusPending {
		b.Status = BookingStatusConfirmed
	}
	b.UpdatedAt = now
	return nil
}

// FailPayment records a provider-reported failure. The booking itself stays
// pending and remains operator-resolvable.
func (b *Booking) FailPayment(transactionRef string) {
	if b.Payment.Status == PaymentStatusCompleted {
		return
	}
	b.Payment.Status = PaymentStatusFailed
	if transactionRef != "" {
		b.Payment.TransactionRef = transactionRef
	}
	b.UpdatedAt = time.Now().UTC()
}

// Cancel transitions a pending booking to cancelled. The owner check and the
// pending-only rule are both enforced here; the repository layer re-reads
// state so a racing confirmation wins over a cancel.
func (b *Booking) Cancel(byUserID string) error {
	if b.UserID != byUserID {
		return NewServiceError(ErrForbidden, "booking belongs to another user", "FORBIDDEN")
	}
	if b.Status != BookingStatusPending {
		return NewServiceError(ErrNotCancellable,
			"only pending bookings can be cancelled", "NOT_CANCELLABLE")
	}
	b.Status = BookingStatusCancelled
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks a confirmed booking as completed (operator action).
func (b *Booking) Complete() error {
	if b.Status != BookingStatusConfirmed {
		return NewServiceError(ErrInvalidTransition,
			"only confirmed bookings can be completed", "INVALID_TRANSITION")
	}
	b.Status = BookingStatusCompleted
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Removable reports whether the booking may be deleted from history.
func (b *Booking) Removable() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// SettleCash completes a cash payment out-of-band (operator action). This is
// the only path by which a cash payment reaches completed.
func (b *Booking) SettleCash() error {
	if b.Payment.Method != PaymentMethodCash {
		return NewServiceError(ErrInvalidTransition,
			"manual settlement applies to cash bookings only", "INVALID_TRANSITION")
	}
	return b.ConfirmPayment("")
}
