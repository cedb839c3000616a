package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fitstack/fitstack-bookings/internal/auth"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, issuer *auth.Issuer, ginMode string) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())

	// Health check endpoint (no auth required)
	router.GET("/health", handler.Health)

	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", handler.Login)
			authRoutes.POST("/challenge", handler.CompleteChallenge)
			authRoutes.POST("/logout", JWTAuthMiddleware(issuer), handler.Logout)
		}

		// End-user surface. The operator role does not pass these checks;
		// the two sessions are strictly independent server-side.
		bookings := v1.Group("/bookings")
		bookings.Use(JWTAuthMiddleware(issuer), RequireRole(domain.RoleUser))
		{
			bookings.POST("", handler.CreateBooking)
			bookings.GET("/:id", handler.GetBooking)
			bookings.POST("/:id/cancel", handler.CancelBooking)
			bookings.DELETE("/:id", handler.RemoveBooking)
		}

		payments := v1.Group("/payments")
		payments.Use(JWTAuthMiddleware(issuer), RequireRole(domain.RoleUser))
		{
			payments.POST("/initiate", handler.InitiatePayment)
			payments.POST("/verify", handler.VerifyPayment)
		}

		// Operator surface: status management and out-of-band settlement.
		admin := v1.Group("/admin")
		admin.Use(JWTAuthMiddleware(issuer), RequireRole(domain.RoleOperator))
		{
			admin.PATCH("/bookings/:id/status", handler.SetBookingStatus)
			admin.PATCH("/bookings/:id/payment", handler.SettleCashPayment)
		}
	}

	return router
}
