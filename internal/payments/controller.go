package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fundi/pkg/logger"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	return &Controller{service: service, log: log}
}

// CreateIntent handles POST /api/v1/payments/intents
func (c *Controller) CreateIntent(ctx *gin.Context) {
	var req CreateIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := c.service.CreateIntent(ctx.Request.Context(), req)
	if err != nil {
		status, message := settlementErrorStatus(err)
		ctx.JSON(status, gin.H{
			"error":   message,
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Payment intent created successfully",
		"data":    resp,
	})
}

// SettleCard handles POST /api/v1/payments/card/settle
func (c *Controller) SettleCard(ctx *gin.Context) {
	var req SettleCardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := c.service.SettleCard(ctx.Request.Context(), req)
	if err != nil {
		status, message := settlementErrorStatus(err)
		ctx.JSON(status, gin.H{
			"error":   message,
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Payment settled successfully",
		"data":    resp,
	})
}

// InitiatePush handles POST /api/v1/payments/mpesa/push
func (c *Controller) InitiatePush(ctx *gin.Context) {
	var req InitiatePushRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := c.service.InitiatePush(ctx.Request.Context(), req)
	if err != nil {
		status, message := settlementErrorStatus(err)
		ctx.JSON(status, gin.H{
			"error":   message,
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"message": "Payment push initiated, awaiting confirmation",
		"data":    resp,
	})
}

// HandleCallback handles POST /api/v1/payments/mpesa/callback.
// The provider is acknowledged with success unconditionally: any other
// response makes it retry, and retries cannot repair a bad payload.
func (c *Controller) HandleCallback(ctx *gin.Context) {
	var env MpesaCallbackEnvelope
	if err := ctx.ShouldBindJSON(&env); err != nil {
		c.log.LogCallbackMalformed(ctx.Request.Context(), err.Error())
		ctx.JSON(http.StatusOK, NewCallbackAck())
		return
	}

	c.service.RecordCallback(ctx.Request.Context(), env)
	ctx.JSON(http.StatusOK, NewCallbackAck())
}

// GetPushStatus handles GET /api/v1/payments/mpesa/status
func (c *Controller) GetPushStatus(ctx *gin.Context) {
	var query PushStatusQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	resp, err := c.service.GetPushStatus(ctx.Request.Context(), query.CheckoutRequestID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve push status"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Push status retrieved successfully",
		"data":    resp,
	})
}

// GetBookingTransactions handles GET /api/v1/payments/transactions/:id
func (c *Controller) GetBookingTransactions(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	resp, err := c.service.GetBookingTransactions(ctx.Request.Context(), bookingID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data":    resp,
	})
}

// GetAllTransactions handles GET /api/v1/payments/transactions
func (c *Controller) GetAllTransactions(ctx *gin.Context) {
	var query TransactionListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	resp, err := c.service.ListTransactions(ctx.Request.Context(), query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data":    resp,
	})
}

// settlementErrorStatus maps settlement errors to HTTP statuses
func settlementErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		return http.StatusNotFound, "Booking not found"
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid payment amount"
	case errors.Is(err, ErrInvalidPhoneNumber):
		return http.StatusBadRequest, "Invalid phone number"
	case errors.Is(err, ErrIntentMismatch):
		return http.StatusUnprocessableEntity, "Payment intent does not match booking"
	case errors.Is(err, ErrAlreadyPaid):
		return http.StatusConflict, "Booking is already paid"
	case errors.Is(err, ErrPaymentInProgress):
		return http.StatusConflict, "A payment for this booking is already in progress"
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired, "Payment was declined"
	case errors.Is(err, ErrPaymentRejected):
		return http.StatusPaymentRequired, "Payment was rejected"
	case errors.Is(err, ErrPaymentTimeout):
		return http.StatusGatewayTimeout, "Payment confirmation timed out"
	case errors.Is(err, ErrPaymentSetupFailed):
		return http.StatusBadGateway, "Failed to set up payment"
	case errors.Is(err, ErrPushInitiationFailed):
		return http.StatusBadGateway, "Failed to initiate payment push"
	case errors.Is(err, ErrBookingUpdateFailed):
		return http.StatusInternalServerError, "Payment collected but booking update failed"
	default:
		return http.StatusInternalServerError, "Payment processing failed"
	}
}
