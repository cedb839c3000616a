package domain

import (
	"fmt"
	"math"
)

// Quote is a client-side, advisory price. It exists only to render a figure
// before submission and is never trusted as the amount to charge.
type Quote struct {
	Subject     SubjectType `json:"subject"`
	Category    string      `json:"category"`
	DurationMin int         `json:"duration_min"`
	Amount      float64     `json:"amount"`
}

// Charge is the authoritative, server-computed price. Quote and Charge are
// deliberately separate types so one can never be used where the other is
// expected.
type Charge struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// DefaultCurrency is used for all charges until multi-currency support exists.
const DefaultCurrency = "ARS"

// Hourly rates keyed by gym category.
var gymRates = map[string]float64{
	"standard": 100,
	"premium":  150,
	"crossfit": 130,
}

// Hourly rates keyed by trainer specialization.
var trainerRates = map[string]float64{
	"general":  200,
	"strength": 250,
	"yoga":     220,
	"boxing":   260,
}

// RateFor returns the hourly rate for a subject/category pair.
func RateFor(subject SubjectType, category string) (float64, error) {
	var table map[string]float64
	switch subject {
	case SubjectGym:
		table = gymRates
	case SubjectTrainer:
		table = trainerRates
	default:
		return 0, NewServiceError(ErrInvalidBooking,
			fmt.Sprintf("unknown subject type %q", subject), "VALIDATION_ERROR")
	}
	rate, ok := table[category]
	if !ok {
		return 0, NewServiceError(ErrUnknownCategory,
			fmt.Sprintf("no rate for %s category %q", subject, category), "UNKNOWN_CATEGORY")
	}
	return rate, nil
}

// QuoteFor computes the advisory price for a slot. The same table backs the
// server-side charge computation, but the server figure is the one persisted.
func QuoteFor(subject SubjectType, category string, durationMin int) (Quote, error) {
	if durationMin <= 0 {
		return Quote{}, NewServiceError(ErrInvalidBooking,
			"duration must be positive", "VALIDATION_ERROR")
	}
	rate, err := RateFor(subject, category)
	if err != nil {
		return Quote{}, err
	}
	// Prices are money: rounded to minor units here so a pro-rated duration
	// (50 min at 200/hr) yields the same cent-exact figure everywhere it is
	// computed, stored, or compared.
	return Quote{
		Subject:     subject,
		Category:    category,
		DurationMin: durationMin,
		Amount:      math.Round(rate*float64(durationMin)/60*100) / 100,
	}, nil
}

// MinorUnits converts an amount to integer minor units. Amount comparisons
// happen in minor units only; float equality on money is never trusted.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ChargeFor computes the authoritative price for a draft.
func ChargeFor(draft BookingDraft) (Charge, error) {
	q, err := QuoteFor(draft.Subject, draft.Category, draft.DurationMin)
	if err != nil {
		return Charge{}, err
	}
	return Charge{Amount: q.Amount, Currency: DefaultCurrency}, nil
}
