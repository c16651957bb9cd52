package bookings

import (
	"time"

	"github.com/google/uuid"

	"fundi/internal/users"
)

// Booking represents a reserved service slot between a client and a provider.
type Booking struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClientID    uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`
	ProviderID  uuid.UUID `gorm:"type:uuid;index;not null" json:"provider_id"`
	ServiceDate time.Time `gorm:"type:date;not null" json:"service_date"`
	StartTime   string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime     string    `gorm:"type:varchar(5);not null" json:"end_time"`

	// Amounts are stored in the base currency and fixed at creation. The
	// payment subsystem converts to the settlement currency but never
	// mutates these fields.
	TotalAmount float64 `gorm:"not null" json:"total_amount"`
	PlatformFee float64 `gorm:"not null;default:0" json:"platform_fee"`

	Status        string `gorm:"type:varchar(20);check:status IN ('PENDING', 'CONFIRMED', 'COMPLETED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	PaymentStatus string `gorm:"type:varchar(20);check:payment_status IN ('PENDING', 'PROCESSING', 'PAID');default:'PENDING'" json:"payment_status"`

	BookingRef  string     `gorm:"unique;not null" json:"booking_ref"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Relationships
	Client   *users.User `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Provider *users.User `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == string(PaymentStatusPaid)
}

func (b *Booking) IsCancelled() bool {
	return b.Status == string(StatusCancelled)
}

// CanComplete reports whether the booking may transition to COMPLETED. A
// booking must be paid before it is eligible for completion.
func (b *Booking) CanComplete() bool {
	return Status(b.Status).CanComplete() && b.IsPaid()
}

func (b *Booking) Cancel() {
	b.Status = string(StatusCancelled)
	now := time.Now()
	b.CancelledAt = &now
	b.UpdatedAt = now
}
