package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/internal/adapters/memory"
	"github.com/fitstack/fitstack-bookings/internal/api"
	"github.com/fitstack/fitstack-bookings/internal/auth"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/service"
)

// stubReconcile satisfies the verify interface without Redis.
type stubReconcile struct {
	repo *memory.BookingRepository
}

func (s *stubReconcile) Verify(ctx context.Context, attempt domain.ReconciliationAttempt) (*domain.Booking, error) {
	if err := attempt.Validate(); err != nil {
		return nil, err
	}
	booking, err := s.repo.GetByID(ctx, attempt.BookingID)
	if err != nil {
		return nil, err
	}
	if domain.ClassifyProviderStatus(attempt.ProviderStatus) == domain.ProviderStatusSuccess {
		readStatus := booking.Status
		if err := booking.ConfirmPayment(attempt.TransactionRef); err != nil {
			return nil, err
		}
		if err := s.repo.Update(ctx, booking, readStatus); err != nil {
			return nil, err
		}
	}
	return booking, nil
}

// stubAuth rejects everything; the handler tests authenticate through the
// issuer directly.
type stubAuth struct{}

func (stubAuth) Login(ctx context.Context, email, password string, role domain.Role) (*service.LoginResult, error) {
	return nil, domain.NewServiceError(domain.ErrInvalidCredentials, "email or password is incorrect", "INVALID_CREDENTIALS")
}

func (stubAuth) CompleteChallenge(ctx context.Context, challengeToken, code string) (*service.LoginResult, error) {
	return nil, domain.NewServiceError(domain.ErrChallengeInvalid, "challenge expired or unknown", "CHALLENGE_INVALID")
}

type apiFixture struct {
	repo   *memory.BookingRepository
	router http.Handler
	issuer *auth.Issuer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	repo := memory.NewBookingRepository()
	logger := zap.NewNop()
	bookings := service.NewBookingService(repo, logger)
	payments := service.NewPaymentService(repo, nil, "https://app.test/return", logger)
	issuer := auth.NewIssuer("test-secret", time.Hour)

	handler := api.NewHandler(bookings, payments, &stubReconcile{repo: repo}, stubAuth{})
	router := api.SetupRouter(handler, issuer, "test")
	return &apiFixture{repo: repo, router: router, issuer: issuer}
}

func (f *apiFixture) token(t *testing.T, role domain.Role) string {
	t.Helper()
	token, _, err := f.issuer.Issue(domain.Principal{ID: "u-1", Name: "Member One"}, role)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func createBookingBody(method string) map[string]any {
	return map[string]any{
		"subject":      "gym",
		"category":     "standard",
		"starts_at":    time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"duration_min": 60,
		"method":       method,
	}
}

func TestCreateBookingEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, domain.RoleUser)

	w := f.request(t, http.MethodPost, "/api/v1/bookings", token, createBookingBody("cash"))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "u-1", resp.Booking.UserID)
	assert.Equal(t, 100.0, resp.Booking.Charge.Amount)
	assert.Equal(t, domain.BookingStatusPending, resp.Booking.Status)
}

func TestCreateBookingConflictReturns409(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, domain.RoleUser)

	w := f.request(t, http.MethodPost, "/api/v1/bookings", token, createBookingBody("cash"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.request(t, http.MethodPost, "/api/v1/bookings", token, createBookingBody("cash"))
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BOOKING_CONFLICT", resp.Code)
}

func TestCreateBookingRejectsBadPayload(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, domain.RoleUser)

	body := createBookingBody("cash")
	body["starts_at"] = "tomorrow at ten"
	w := f.request(t, http.MethodPost, "/api/v1/bookings", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingEndpointsRequireUserRole(t *testing.T) {
	f := newAPIFixture(t)

	// No credential at all.
	w := f.request(t, http.MethodPost, "/api/v1/bookings", "", createBookingBody("cash"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// An operator credential must not satisfy a user-role check.
	w = f.request(t, http.MethodPost, "/api/v1/bookings", f.token(t, domain.RoleOperator), createBookingBody("cash"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminEndpointsRequireOperatorRole(t *testing.T) {
	f := newAPIFixture(t)

	w := f.request(t, http.MethodPatch, "/api/v1/admin/bookings/some-id/status",
		f.token(t, domain.RoleUser), map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.token(t, domain.RoleUser)

	w := f.request(t, http.MethodPost, "/api/v1/bookings", userToken, createBookingBody("gateway"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.request(t, http.MethodPost, "/api/v1/payments/verify", userToken, map[string]any{
		"transaction_ref": "txn-1",
		"booking_id":      created.Booking.ID,
		"subject":         "gym",
		"amount":          100.0,
		"provider_status": "approved",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var verified struct {
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.Equal(t, domain.PaymentStatusCompleted, verified.Booking.Payment.Status)
	assert.Equal(t, domain.BookingStatusConfirmed, verified.Booking.Status)
}

func TestVerifyPaymentMissingRefRejected(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.token(t, domain.RoleUser)

	w := f.request(t, http.MethodPost, "/api/v1/payments/verify", userToken, map[string]any{
		"booking_id":      "b-1",
		"provider_status": "approved",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettleCashEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.token(t, domain.RoleUser)
	opToken := f.token(t, domain.RoleOperator)

	w := f.request(t, http.MethodPost, "/api/v1/bookings", userToken, createBookingBody("cash"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/admin/bookings/%s/payment", created.Booking.ID)
	w = f.request(t, http.MethodPatch, path, opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var settled struct {
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settled))
	assert.Equal(t, domain.PaymentStatusCompleted, settled.Booking.Payment.Status)
}

func TestCancelAfterConfirmationReturns422(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.token(t, domain.RoleUser)

	w := f.request(t, http.MethodPost, "/api/v1/bookings", userToken, createBookingBody("gateway"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.request(t, http.MethodPost, "/api/v1/payments/verify", userToken, map[string]any{
		"transaction_ref": "txn-1",
		"booking_id":      created.Booking.ID,
		"provider_status": "approved",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodPost, "/api/v1/bookings/"+created.Booking.ID+"/cancel", userToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
