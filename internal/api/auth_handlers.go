package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// LoginRequest represents the JSON body for sign-in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Login handles POST /api/v1/auth/login.
// Operator accounts get a challenge_token back instead of a session; the
// client finishes sign-in through the challenge endpoint.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// ChallengeRequest represents the JSON body for completing operator sign-in.
type ChallengeRequest struct {
	ChallengeToken string `json:"challenge_token" binding:"required"`
	Code           string `json:"code" binding:"required"`
}

// CompleteChallenge handles POST /api/v1/auth/challenge.
func (h *Handler) CompleteChallenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	result, err := h.auth.CompleteChallenge(c.Request.Context(), req.ChallengeToken, req.Code)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so the
// server side has nothing to revoke; the endpoint exists so clients have a
// single place to report sign-out, and it is role-scoped by the caller's own
// token.
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
