// Package domain contains the core business entities for the booking service.
// This is the innermost layer - no external dependencies.
package domain

import "time"

// PaymentMethod is how the member chose to pay for a booking.
type PaymentMethod string

const (
	// PaymentMethodCash is settled in person; the gateway is never involved.
	PaymentMethodCash PaymentMethod = "cash"
	// PaymentMethodGateway goes through the provider's redirect checkout.
	PaymentMethodGateway PaymentMethod = "gateway"
)

// PaymentStatus is the settlement state of a booking's payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is the payment sub-record embedded in a Booking.
// TransactionRef stays empty until the provider assigns one.
type Payment struct {
	Method         PaymentMethod `json:"method"`
	Status         PaymentStatus `json:"status"`
	Amount         float64       `json:"amount"`
	TransactionRef string        `json:"transaction_ref,omitempty"`
	PreferenceID   string        `json:"preference_id,omitempty"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
}

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m PaymentMethod) bool {
	return m == PaymentMethodCash || m == PaymentMethodGateway
}
