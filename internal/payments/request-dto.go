package payments

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// CreateIntentRequest starts the card rail for a booking
type CreateIntentRequest struct {
	BookingID     string `json:"booking_id" binding:"required,uuid"`
	PaymentMethod string `json:"payment_method"`
}

// SettleCardRequest completes the card rail after the client-side confirm
type SettleCardRequest struct {
	BookingID       string `json:"booking_id" binding:"required,uuid"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// InitiatePushRequest starts the mobile-money rail for a booking
type InitiatePushRequest struct {
	BookingID   string `json:"booking_id" binding:"required,uuid"`
	PhoneNumber string `json:"phone_number" binding:"required,msisdn"`
}

// PushStatusQuery identifies the push attempt being polled
type PushStatusQuery struct {
	CheckoutRequestID string `form:"checkout_request_id" json:"checkout_request_id" binding:"required"`
}

// TransactionListQuery holds filters for the admin transaction listing
type TransactionListQuery struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Method string `form:"method"`
	Status string `form:"status"`
}

// RegisterValidators installs the custom msisdn rule on gin's validator so
// malformed phone numbers are rejected at the binding layer as well.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
			return phoneNumberRx.MatchString(fl.Field().String())
		})
	}
}
