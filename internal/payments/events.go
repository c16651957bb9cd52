package payments

import (
	"context"
	"time"
)

// Settlement event types published on the event bus.
const (
	EventPaymentSettled = "payment.settled"
	EventPaymentFailed  = "payment.failed"
)

// SettlementEvent is emitted after every terminal settlement outcome so
// downstream consumers (receipts, dashboards) learn about it without polling.
type SettlementEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	BookingRef string    `json:"booking_ref,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	Method     string    `json:"method"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AlertEvent is emitted when payment was collected but the authoritative
// booking write could not be completed: collected-but-unrecorded revenue that
// a human or a reconciliation job must resolve.
type AlertEvent struct {
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"reference"`
	Method     string    `json:"method"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SettlementPublisher delivers settlement events to the event bus. Publish
// failures must never fail a settlement; implementations log and move on.
type SettlementPublisher interface {
	PublishSettlement(ctx context.Context, event SettlementEvent) error
	PublishAlert(ctx context.Context, event AlertEvent) error
}
