package domain

// ProviderStatus classifies the status string the provider reports on its
// redirect back into the app.
type ProviderStatus string

const (
	ProviderStatusSuccess    ProviderStatus = "success"
	ProviderStatusProcessing ProviderStatus = "processing"
	ProviderStatusFailed     ProviderStatus = "failed"
	ProviderStatusUnknown    ProviderStatus = "unknown"
)

// ClassifyProviderStatus maps the provider's raw status strings onto the
// three cases the reconciliation logic distinguishes.
func ClassifyProviderStatus(raw string) ProviderStatus {
	switch raw {
	case "approved", "success":
		return ProviderStatusSuccess
	case "pending", "in_process", "in_mediation":
		return ProviderStatusProcessing
	case "rejected", "cancelled", "failure", "failed":
		return ProviderStatusFailed
	default:
		return ProviderStatusUnknown
	}
}

// ReconciliationAttempt is the tuple extracted from one redirect pass or a
// manual resend. It is ephemeral: used once per confirmation, never persisted.
type ReconciliationAttempt struct {
	TransactionRef string      `json:"transaction_ref"`
	BookingID      string      `json:"booking_id"`
	Subject        SubjectType `json:"subject"`
	Amount         float64     `json:"amount"`
	ProviderStatus string      `json:"provider_status"`
}

// Validate checks that the attempt carries enough to reconcile anything.
func (a ReconciliationAttempt) Validate() error {
	if a.TransactionRef == "" {
		return NewServiceError(ErrMissingConfirmation,
			"transaction reference is missing", "MISSING_TRANSACTION_REF")
	}
	if a.BookingID == "" {
		return NewServiceError(ErrMissingConfirmation,
			"booking reference is missing", "MISSING_BOOKING_REF")
	}
	return nil
}

// CheckoutSession is what the provider hands back when a payment session is
// created: an intent identifier and the URL the browser should be sent to.
type CheckoutSession struct {
	PreferenceID string `json:"preference_id"`
	RedirectURL  string `json:"redirect_url"`
}
