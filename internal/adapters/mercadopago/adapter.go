// Package mercadopago implements the PaymentGateway interface using the Mercado Pago SDK.
package mercadopago

import (
	"context"
	"fmt"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/preference"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// Adapter implements the ports.PaymentGateway interface using Mercado Pago SDK.
type Adapter struct {
	accessToken string
}

// NewAdapter creates a new Mercado Pago adapter with the account token.
func NewAdapter(accessToken string) *Adapter {
	return &Adapter{accessToken: accessToken}
}

// CreateCheckout creates a payment preference in Mercado Pago and returns the
// redirect target. The booking id travels as external_reference so the
// redirect back into the app can name the booking it belongs to; the item
// title carries the subject type for the label-based inference fallback.
func (a *Adapter) CreateCheckout(ctx context.Context, booking *domain.Booking, returnURL string) (*domain.CheckoutSession, error) {
	cfg, err := config.New(a.accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP config: %w", err)
	}

	client := preference.NewClient(cfg)

	title := fmt.Sprintf("%s session (%s, %d min)",
		booking.Subject, booking.Category, booking.DurationMin)

	request := preference.Request{
		Items: []preference.ItemRequest{
			{
				Title:      title,
				Quantity:   1,
				UnitPrice:  booking.Charge.Amount,
				CurrencyID: booking.Charge.Currency,
			},
		},
		ExternalReference: booking.ID,
		AutoReturn:        "approved",
		BackURLs: &preference.BackURLsRequest{
			Success: returnURL,
			Failure: returnURL,
			Pending: returnURL,
		},
	}

	result, err := client.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}

	return &domain.CheckoutSession{
		PreferenceID: result.ID,
		RedirectURL:  result.InitPoint,
	}, nil
}
