// Package api contains the HTTP handlers and routing for the booking service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/service"
)

// BookingService is the slice of the booking service the handlers need.
type BookingService interface {
	Create(ctx context.Context, userID string, draft domain.BookingDraft) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id, userID string) (*domain.Booking, error)
	Remove(ctx context.Context, id, userID string) error
	SetStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error)
	SettleCash(ctx context.Context, id string) (*domain.Booking, error)
}

// PaymentService starts payments.
type PaymentService interface {
	Initiate(ctx context.Context, bookingID string) (*service.InitiateResult, error)
}

// ReconcileService verifies provider transactions.
type ReconcileService interface {
	Verify(ctx context.Context, attempt domain.ReconciliationAttempt) (*domain.Booking, error)
}

// AuthService signs accounts in.
type AuthService interface {
	Login(ctx context.Context, email, password string, role domain.Role) (*service.LoginResult, error)
	CompleteChallenge(ctx context.Context, challengeToken, code string) (*service.LoginResult, error)
}

// Handler contains the HTTP handlers for the booking API.
type Handler struct {
	bookings  BookingService
	payments  PaymentService
	reconcile ReconcileService
	auth      AuthService
}

// NewHandler creates a new API handler.
func NewHandler(bookings BookingService, payments PaymentService, reconcile ReconcileService, auth AuthService) *Handler {
	return &Handler{bookings: bookings, payments: payments, reconcile: reconcile, auth: auth}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// CreateBookingRequest represents the JSON body for booking creation.
type CreateBookingRequest struct {
	Subject     string  `json:"subject" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	StartsAt    string  `json:"starts_at" binding:"required"`
	DurationMin int     `json:"duration_min" binding:"required,gt=0"`
	Method      string  `json:"method" binding:"required"`
	QuotedPrice float64 `json:"quoted_price"` // advisory only, never persisted
}

// CreateBooking handles POST /api/v1/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "starts_at must be RFC 3339",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	draft := domain.BookingDraft{
		Subject:     domain.SubjectType(req.Subject),
		Category:    req.Category,
		StartsAt:    startsAt,
		DurationMin: req.DurationMin,
		Method:      domain.PaymentMethod(req.Method),
	}

	booking, err := h.bookings.Create(c.Request.Context(), principalID(c), draft)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "booking": booking})
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *Handler) CancelBooking(c *gin.Context) {
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), principalID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// RemoveBooking handles DELETE /api/v1/bookings/:id.
func (h *Handler) RemoveBooking(c *gin.Context) {
	if err := h.bookings.Remove(c.Request.Context(), c.Param("id"), principalID(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// InitiatePaymentRequest represents the JSON body for payment initiation.
type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// InitiatePayment handles POST /api/v1/payments/initiate.
func (h *Handler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	result, err := h.payments.Initiate(c.Request.Context(), req.BookingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// VerifyPaymentRequest represents the JSON body for the idempotent verify.
type VerifyPaymentRequest struct {
	TransactionRef string  `json:"transaction_ref" binding:"required"`
	BookingID      string  `json:"booking_id" binding:"required"`
	Subject        string  `json:"subject"`
	Amount         float64 `json:"amount"`
	ProviderStatus string  `json:"provider_status" binding:"required"`
}

// VerifyPayment handles POST /api/v1/payments/verify.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	booking, err := h.reconcile.Verify(c.Request.Context(), domain.ReconciliationAttempt{
		TransactionRef: req.TransactionRef,
		BookingID:      req.BookingID,
		Subject:        domain.SubjectType(req.Subject),
		Amount:         req.Amount,
		ProviderStatus: req.ProviderStatus,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// SetStatusRequest represents the operator status mutation body.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetBookingStatus handles PATCH /api/v1/admin/bookings/:id/status.
func (h *Handler) SetBookingStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}
	booking, err := h.bookings.SetStatus(c.Request.Context(), c.Param("id"), domain.BookingStatus(req.Status))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// SettleCashPayment handles PATCH /api/v1/admin/bookings/:id/payment.
func (h *Handler) SettleCashPayment(c *gin.Context) {
	booking, err := h.bookings.SettleCash(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "fitstack-bookings",
	})
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrBookingConflict),
		errors.Is(err, domain.ErrStaleBooking):
		statusCode = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidBooking),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrMissingConfirmation):
		statusCode = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrNotRemovable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCashNotReconcilable),
		errors.Is(err, domain.ErrBookingNotReconcilable),
		errors.Is(err, domain.ErrAmountMismatch):
		statusCode = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrChallengeInvalid),
		errors.Is(err, domain.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		statusCode = http.StatusForbidden
	case errors.Is(err, domain.ErrPaymentGatewayError):
		statusCode = http.StatusBadGateway
	}

	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		c.JSON(statusCode, ErrorResponse{
			Success: false,
			Error:   svcErr.Message,
			Code:    svcErr.Code,
		})
		return
	}

	if statusCode == http.StatusInternalServerError {
		c.JSON(statusCode, ErrorResponse{
			Success: false,
			Error:   "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(statusCode, ErrorResponse{Success: false, Error: err.Error()})
}
