package payments

import (
	"time"

	"github.com/google/uuid"

	"fundi/internal/bookings"
)

// Transaction is the immutable record of a settled payment. Rows are inserted
// exactly once by the reconciler commit and never updated or deleted.
type Transaction struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`

	// Reference is the external payment reference: the processor's payment
	// intent id on the card rail, the M-Pesa receipt number on mobile money.
	Reference string `gorm:"unique;not null" json:"reference"`

	// Amount in whole units of the settlement currency.
	Amount   int64  `gorm:"not null" json:"amount"`
	Currency string `gorm:"type:varchar(3);not null" json:"currency"`

	PaymentMethod string `gorm:"type:varchar(20);check:payment_method IN ('card', 'mpesa')" json:"payment_method"`
	Status        string `gorm:"type:varchar(20);check:status IN ('COMPLETED', 'PENDING', 'FAILED');default:'COMPLETED'" json:"status"`

	// PhoneNumber is populated on the mobile-money rail only.
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Relationships
	Booking *bookings.Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:RESTRICT;"`
}

// TableName sets the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == string(TransactionStatusCompleted)
}

// PushOutcome is the ephemeral correlation record for one push attempt,
// written once by the callback receiver and read by the status poller until
// the reconciler observes a terminal state.
type PushOutcome struct {
	CheckoutRequestID string            `json:"checkout_request_id"`
	MerchantRequestID string            `json:"merchant_request_id,omitempty"`
	Status            CorrelationStatus `json:"status"`
	Amount            int64             `json:"amount,omitempty"`
	Receipt           string            `json:"receipt,omitempty"`
	PhoneNumber       string            `json:"phone_number,omitempty"`
	Reason            string            `json:"reason,omitempty"`
	ResolvedAt        time.Time         `json:"resolved_at"`
}

func (o *PushOutcome) IsCompleted() bool {
	return o.Status == CorrelationStatusCompleted
}
