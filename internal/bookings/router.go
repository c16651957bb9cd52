package bookings

import (
	"github.com/gin-gonic/gin"

	"fundi/internal/shared/config"
	"fundi/internal/shared/middleware"
	"fundi/pkg/ratelimit"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config, limiter *ratelimit.RateLimiter) {
	bookingsGroup := rg.Group("/bookings")
	bookingsGroup.Use(
		ratelimit.Middleware(limiter, ratelimit.RateLimitTypeBooking),
		middleware.JWTAuthWithConfig(cfg),
		middleware.RequireRoles("CLIENT", "PROVIDER", "ADMIN"),
	)
	{
		bookingsGroup.POST("", controller.CreateBooking)                  // POST /api/v1/bookings
		bookingsGroup.GET("/:id", controller.GetBooking)                  // GET /api/v1/bookings/:id
		bookingsGroup.POST("/:id/cancel", controller.CancelBooking)       // POST /api/v1/bookings/:id/cancel
		bookingsGroup.POST("/:id/complete", controller.CompleteBooking)   // POST /api/v1/bookings/:id/complete
	}

	usersGroup := rg.Group("/users")
	usersGroup.Use(
		ratelimit.Middleware(limiter, ratelimit.RateLimitTypeDefault),
		middleware.JWTAuthWithConfig(cfg),
	)
	{
		usersGroup.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings
	}

	adminGroup := rg.Group("/admin")
	adminGroup.Use(
		ratelimit.Middleware(limiter, ratelimit.RateLimitTypeAdmin),
		middleware.JWTAuthWithConfig(cfg),
		middleware.RequireAdmin(),
	)
	{
		adminGroup.GET("/bookings", controller.GetAllBookings) // GET /api/v1/admin/bookings
	}
}
