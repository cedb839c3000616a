package domain

import "errors"

// Domain errors - represent business rule violations.
var (
	// ErrInvalidBooking is returned for malformed drafts, caught before any
	// network or storage work happens.
	ErrInvalidBooking = errors.New("invalid booking")

	// ErrUnknownCategory is returned when no rate exists for a category.
	ErrUnknownCategory = errors.New("unknown rate category")

	// ErrBookingNotFound is returned when a booking id resolves to nothing.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingConflict is returned for an overlapping booking on the same
	// subject and time window. Never retried automatically.
	ErrBookingConflict = errors.New("booking conflict")

	// ErrNotCancellable is returned when cancelling a non-pending booking.
	ErrNotCancellable = errors.New("booking not cancellable")

	// ErrNotRemovable is returned when deleting a booking that is not in a
	// terminal state.
	ErrNotRemovable = errors.New("booking not removable")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleBooking is returned when a guarded update finds the stored
	// status no longer matches the one the caller read. The store decides
	// races; a stale writer re-reads instead of overwriting.
	ErrStaleBooking = errors.New("booking changed concurrently")

	// ErrCashNotReconcilable is returned when the verifier is pointed at a
	// cash booking; only an operator settles those.
	ErrCashNotReconcilable = errors.New("cash payment cannot be reconciled")

	// ErrBookingNotReconcilable is returned when a payment would move a
	// terminal booking backward.
	ErrBookingNotReconcilable = errors.New("booking not reconcilable")

	// ErrAmountMismatch is returned when the provider-claimed amount differs
	// from the authoritative charge.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrMissingConfirmation is returned when a redirect pass carries no
	// usable identifiers. Fatal for that pass only.
	ErrMissingConfirmation = errors.New("missing confirmation parameters")

	// ErrPaymentGatewayError is returned when the provider call fails.
	ErrPaymentGatewayError = errors.New("payment gateway error")

	// ErrInvalidCredentials is returned for a failed sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrChallengeInvalid is returned for a wrong or expired challenge code.
	ErrChallengeInvalid = errors.New("invalid sign-in challenge")

	// ErrInvalidPrincipal is returned when a persisted principal is missing
	// required identity fields.
	ErrInvalidPrincipal = errors.New("invalid principal")

	// ErrUnauthorized is returned on 401-class failures.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned on 403-class failures.
	ErrForbidden = errors.New("forbidden")
)

// ServiceError wraps errors with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(err error, message, code string) *ServiceError {
	return &ServiceError{Err: err, Message: message, Code: code}
}
