package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fitstack/fitstack-bookings/internal/auth"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

const (
	ctxPrincipalID = "principal_id"
	ctxRole        = "role"
)

// CORSMiddleware handles Cross-Origin Resource Sharing.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// JWTAuthMiddleware validates a Bearer token and stores the principal id and
// role in the request context. Requests without a credential are rejected
// here; the client deliberately never blocks such calls locally.
func JWTAuthMiddleware(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(401, ErrorResponse{
				Success: false,
				Error:   "Authorization header required",
				Code:    "UNAUTHORIZED",
			})
			return
		}

		claims, err := issuer.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(401, ErrorResponse{
				Success: false,
				Error:   "invalid token",
				Code:    "UNAUTHORIZED",
			})
			return
		}

		c.Set(ctxPrincipalID, claims.Principal.ID)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// RequireRole enforces that the authenticated principal holds one of the
// given roles. Holding the other role is a 403, never a pass: the two
// sessions are independent and must not satisfy each other's checks.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if !allowed[role] {
			c.AbortWithStatusJSON(403, ErrorResponse{
				Success: false,
				Error:   "insufficient role",
				Code:    "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// principalID returns the authenticated principal's id, empty when the
// request is unauthenticated.
func principalID(c *gin.Context) string {
	return c.GetString(ctxPrincipalID)
}
