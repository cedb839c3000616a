package domain

// PaymentConfirmedEvent is published when the verifier converges a booking to
// confirmed. It carries enough for downstream consumers (notifications,
// operator dashboards) without querying the primary store.
type PaymentConfirmedEvent struct {
	BookingID      string      `json:"booking_id"`
	UserID         string      `json:"user_id"`
	Subject        SubjectType `json:"subject"`
	TransactionRef string      `json:"transaction_ref"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
	ConfirmedAt    string      `json:"confirmed_at"`
}
