package payments

import "errors"

// Settlement error taxonomy. Validation errors are rejected before any
// network call; integration errors surface the processor's message and are
// never retried; consistency errors mean money moved but booking state
// disagrees and are escalated rather than swallowed.
var (
	// Input validation
	ErrInvalidAmount      = errors.New("amount must be a positive whole unit of the settlement currency")
	ErrInvalidPhoneNumber = errors.New("phone number must be the country code 254 followed by 9 digits")

	// Upstream integration
	ErrPaymentSetupFailed   = errors.New("payment setup failed")
	ErrPushInitiationFailed = errors.New("mobile money push initiation failed")

	// Terminal payment outcomes
	ErrPaymentDeclined = errors.New("card payment was declined")
	ErrPaymentRejected = errors.New("mobile money payment was rejected")
	ErrPaymentTimeout  = errors.New("mobile money payment was not confirmed in time")

	// State guards
	ErrAlreadyPaid       = errors.New("booking is already paid")
	ErrPaymentInProgress = errors.New("a payment for this booking is already in progress")
	ErrIntentMismatch    = errors.New("payment intent does not match the booking")

	// Post-payment consistency: the authoritative write failed after the
	// charge succeeded. The most serious class.
	ErrBookingUpdateFailed = errors.New("booking update failed after successful payment")

	ErrBookingNotFound = errors.New("booking not found")
)
