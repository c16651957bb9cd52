package payments

import (
	"github.com/gin-gonic/gin"

	"fundi/internal/shared/config"
	"fundi/internal/shared/middleware"
	"fundi/pkg/ratelimit"
)

// SetupPaymentRoutes configures all payment-related routes. The callback and
// status endpoints stay public: the provider cannot present a user token, and
// a client polling status may not have refreshed its session. Both get the
// stricter callback rate-limit category instead.
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config, limiter *ratelimit.RateLimiter) {
	paymentsGroup := rg.Group("/payments")

	publicGroup := paymentsGroup.Group("")
	publicGroup.Use(ratelimit.Middleware(limiter, ratelimit.RateLimitTypeCallback))
	{
		publicGroup.POST("/mpesa/callback", controller.HandleCallback) // POST /api/v1/payments/mpesa/callback
		publicGroup.GET("/mpesa/status", controller.GetPushStatus)     // GET /api/v1/payments/mpesa/status
	}

	protectedGroup := paymentsGroup.Group("")
	protectedGroup.Use(
		ratelimit.Middleware(limiter, ratelimit.RateLimitTypePayment),
		middleware.JWTAuthWithConfig(cfg),
		middleware.RequireRoles("CLIENT", "ADMIN"),
	)
	{
		protectedGroup.POST("/intents", controller.CreateIntent)    // POST /api/v1/payments/intents
		protectedGroup.POST("/card/settle", controller.SettleCard)  // POST /api/v1/payments/card/settle
		protectedGroup.POST("/mpesa/push", controller.InitiatePush) // POST /api/v1/payments/mpesa/push
	}

	transactionsGroup := paymentsGroup.Group("/transactions")
	transactionsGroup.Use(
		ratelimit.Middleware(limiter, ratelimit.RateLimitTypeDefault),
		middleware.JWTAuthWithConfig(cfg),
	)
	{
		// GET /api/v1/payments/transactions/:id
		transactionsGroup.GET("/:id", controller.GetBookingTransactions)

		// GET /api/v1/payments/transactions (admin-only listing)
		transactionsGroup.GET("", middleware.RequireAdmin(), controller.GetAllTransactions)
	}
}
