package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// CardIntent is the gateway-side authorization for a card payment. State
// lives entirely in the external processor until confirmation; nothing is
// persisted locally at intent creation.
type CardIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	BookingID    string
	Status       string
}

// Succeeded reports whether the processor captured the payment.
func (i *CardIntent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// IntentGateway creates and retrieves card payment authorizations against the
// external processor.
type IntentGateway interface {
	CreateIntent(ctx context.Context, amount int64, bookingID, methodHint string) (*CardIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*CardIntent, error)
}

// StripeGateway implements IntentGateway on the Stripe PaymentIntent API.
type StripeGateway struct {
	api      *client.API
	currency string
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:      api,
		currency: strings.ToLower(currency),
	}
}

// CreateIntent creates a PaymentIntent tagged with the booking id for later
// reconciliation. Redirect-based payment methods are disabled: the card flow
// must resolve within one confirm round-trip.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, bookingID, methodHint string) (*CardIntent, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(g.currency),
	}
	if methodHint != "" {
		params.PaymentMethodTypes = stripe.StringSlice([]string{methodHint})
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		}
	}
	params.AddMetadata("booking_id", bookingID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentSetupFailed, gatewayMessage(err))
	}

	return toCardIntent(pi), nil
}

// RetrieveIntent fetches the current state of a PaymentIntent.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*CardIntent, error) {
	pi, err := g.api.PaymentIntents.Get(intentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentSetupFailed, gatewayMessage(err))
	}

	return toCardIntent(pi), nil
}

func toCardIntent(pi *stripe.PaymentIntent) *CardIntent {
	return &CardIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		BookingID:    pi.Metadata["booking_id"],
		Status:       string(pi.Status),
	}
}

// gatewayMessage extracts the processor's human-readable message so the
// caller can surface it without exposing the raw error structure.
func gatewayMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
