package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitstack/fitstack-bookings/client"
	"github.com/fitstack/fitstack-bookings/client/session"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

func returnQuery(overrides map[string]string) url.Values {
	q := url.Values{}
	q.Set("payment_id", "txn-1")
	q.Set("external_reference", "b-1")
	q.Set("status", "approved")
	q.Set("subject", "gym")
	q.Set("amount", "10000")
	for k, v := range overrides {
		if v == "" {
			q.Del(k)
		} else {
			q.Set(k, v)
		}
	}
	return q
}

func TestParseReturn(t *testing.T) {
	attempt := client.ParseReturn(returnQuery(nil))
	assert.Equal(t, "txn-1", attempt.TransactionRef)
	assert.Equal(t, "b-1", attempt.BookingID)
	assert.Equal(t, domain.SubjectGym, attempt.Subject)
	assert.Equal(t, "approved", attempt.ProviderStatus)
	// Minor units on the wire.
	assert.Equal(t, 100.0, attempt.Amount)
}

func TestParseReturnAcceptsCollectionFields(t *testing.T) {
	q := returnQuery(map[string]string{"payment_id": "", "status": ""})
	q.Set("collection_id", "txn-2")
	q.Set("collection_status", "approved")

	attempt := client.ParseReturn(q)
	assert.Equal(t, "txn-2", attempt.TransactionRef)
	assert.Equal(t, "approved", attempt.ProviderStatus)
}

func TestParseReturnTreatsNullAsMissing(t *testing.T) {
	attempt := client.ParseReturn(returnQuery(map[string]string{"payment_id": "null"}))
	assert.Empty(t, attempt.TransactionRef)
}

func TestParseReturnInfersSubjectFromOrderLabel(t *testing.T) {
	q := returnQuery(map[string]string{"subject": ""})
	q.Set("order_label", "Personal Trainer session (strength, 60 min)")
	attempt := client.ParseReturn(q)
	assert.Equal(t, domain.SubjectTrainer, attempt.Subject)

	q = returnQuery(map[string]string{"subject": ""})
	q.Set("order_label", "Gym session (standard, 60 min)")
	attempt = client.ParseReturn(q)
	assert.Equal(t, domain.SubjectGym, attempt.Subject)
}

func confirmClient(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sessions := session.NewStore(session.NewMemoryKV())
	require.NoError(t, sessions.Set(context.Background(), domain.RoleUser, "user-token", member))
	return client.New(srv.URL, sessions)
}

func TestConfirmServerVerified(t *testing.T) {
	c := confirmClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payments/verify", r.URL.Path)
		b := sampleBooking(domain.PaymentMethodGateway)
		require.NoError(t, b.ConfirmPayment("txn-1"))
		writeBooking(w, b)
	})

	result := c.Confirm(context.Background(), returnQuery(nil))
	assert.Equal(t, client.ConfirmedByServer, result.Outcome)
	assert.Equal(t, "txn-1", result.TransactionRef)
	require.NotNil(t, result.Booking)
	assert.Equal(t, domain.PaymentStatusCompleted, result.Booking.Payment.Status)
	assert.NoError(t, result.Err)
}

func TestConfirmProcessing(t *testing.T) {
	c := confirmClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBooking(w, sampleBooking(domain.PaymentMethodGateway))
	})

	result := c.Confirm(context.Background(), returnQuery(map[string]string{"status": "in_process"}))
	assert.Equal(t, client.ConfirmationProcessing, result.Outcome)
	// The retained attempt re-runs the identical verify later.
	assert.Equal(t, "txn-1", result.Attempt.TransactionRef)
	assert.Equal(t, "b-1", result.Attempt.BookingID)
}

func TestConfirmProviderRejected(t *testing.T) {
	c := confirmClient(t, func(w http.ResponseWriter, r *http.Request) {
		b := sampleBooking(domain.PaymentMethodGateway)
		b.FailPayment("txn-1")
		writeBooking(w, b)
	})

	result := c.Confirm(context.Background(), returnQuery(map[string]string{"status": "rejected"}))
	assert.Equal(t, client.ConfirmationFailed, result.Outcome)
	// The reference is kept for support even on failure.
	assert.Equal(t, "txn-1", result.TransactionRef)
}

func TestConfirmOptimisticWhenVerifyUnreachable(t *testing.T) {
	sessions := session.NewStore(session.NewMemoryKV())
	c := client.New("http://127.0.0.1:0", sessions)

	// Provider claims success but the backend cannot be reached: surfaced as
	// confirmed-by-client, with the error and attempt retained.
	result := c.Confirm(context.Background(), returnQuery(nil))
	assert.Equal(t, client.ConfirmedByClient, result.Outcome)
	assert.Equal(t, "txn-1", result.TransactionRef)
	assert.Error(t, result.Err)
	assert.Equal(t, "b-1", result.Attempt.BookingID)
}

func TestConfirmNoOptimismWithoutSuccessClaim(t *testing.T) {
	c := client.New("http://127.0.0.1:0", session.NewStore(session.NewMemoryKV()))

	result := c.Confirm(context.Background(), returnQuery(map[string]string{"status": "in_process"}))
	assert.Equal(t, client.ConfirmationFailed, result.Outcome)
	assert.Error(t, result.Err)
}

func TestConfirmMangledRedirect(t *testing.T) {
	called := false
	c := confirmClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	// No transaction reference at all.
	result := c.Confirm(context.Background(), returnQuery(map[string]string{"payment_id": ""}))
	assert.Equal(t, client.ConfirmationFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, domain.ErrMissingConfirmation)
	assert.False(t, called)

	// No booking reference.
	result = c.Confirm(context.Background(), returnQuery(map[string]string{"external_reference": ""}))
	assert.Equal(t, client.ConfirmationFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, domain.ErrMissingConfirmation)
	assert.False(t, called)
}

func TestConfirmAmountMismatchFails(t *testing.T) {
	c := confirmClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "provider claims 150.00, charge is 100.00 (ref txn-1)",
			"code":    "AMOUNT_MISMATCH",
		})
	})

	// An explicit backend rejection outranks the provider's success claim:
	// the claim was checked and found wrong, not left unchecked.
	result := c.Confirm(context.Background(), returnQuery(map[string]string{"amount": "15000"}))
	assert.Equal(t, client.ConfirmationFailed, result.Outcome)
	assert.Error(t, result.Err)
}

func TestResendVerificationReRunsVerify(t *testing.T) {
	calls := 0
	c := confirmClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		b := sampleBooking(domain.PaymentMethodGateway)
		if calls > 1 {
			require.NoError(t, b.ConfirmPayment("txn-1"))
		}
		writeBooking(w, b)
	})
	ctx := context.Background()

	result := c.Confirm(ctx, returnQuery(map[string]string{"status": "approved"}))
	assert.Equal(t, client.ConfirmationProcessing, result.Outcome)

	booking, err := c.ResendVerification(ctx, result.Attempt)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, booking.Payment.Status)
	assert.Equal(t, 2, calls)
}
