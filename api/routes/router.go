// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fundi/internal/bookings"
	"fundi/internal/payments"
	"fundi/internal/shared/config"
	"fundi/internal/shared/database"
	"fundi/pkg/cache"
	"fundi/pkg/logger"
	"fundi/pkg/ratelimit"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	limiter   *ratelimit.RateLimiter
	publisher payments.SettlementPublisher
	log       *logger.Logger
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, limiter *ratelimit.RateLimiter, publisher payments.SettlementPublisher) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		limiter:   limiter,
		publisher: publisher,
		log:       logger.GetDefault(),
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// Custom binding rules must be installed before any handler binds
	payments.RegisterValidators()

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupBookingRoutes(api)
		r.setupPaymentRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "fundi-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "fundi-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupBookingRoutes configures booking management routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
	bookingService := bookings.NewService(bookingRepo)
	bookingController := bookings.NewController(bookingService)

	bookings.SetupBookingRoutes(rg, bookingController, r.config, r.limiter)
}

// setupPaymentRoutes wires the settlement reconciler and its two rails
func (r *Router) setupPaymentRoutes(rg *gin.RouterGroup) {
	paymentRepo := payments.NewRepository(r.db.GetPostgreSQL())
	gateway := payments.NewStripeGateway(r.config.Stripe.SecretKey, r.config.Settlement.Currency)
	pushClient := payments.NewDarajaClient(r.config.Mpesa)

	cacheService := cache.NewService(r.db.GetRedis())
	correlationStore := payments.NewCorrelationStore(cacheService, r.config.Settlement.CorrelationTTL)

	converter := payments.NewConverter(
		r.config.Settlement.Rate,
		r.config.Settlement.BaseCurrency,
		r.config.Settlement.Currency,
	)

	paymentService := payments.NewService(
		paymentRepo,
		gateway,
		pushClient,
		correlationStore,
		r.publisher,
		converter,
		r.config.Settlement,
		r.log,
	)
	paymentController := payments.NewController(paymentService, r.log)

	payments.SetupPaymentRoutes(rg, paymentController, r.config, r.limiter)
}
