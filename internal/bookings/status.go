package bookings

// Status is the booking lifecycle state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the booking status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanBeCancelled checks if a booking with this status can be cancelled
func (s Status) CanBeCancelled() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanComplete checks if a booking with this status can move to COMPLETED
func (s Status) CanComplete() bool {
	return s == StatusConfirmed
}

// IsActive checks if the booking is active (not cancelled or completed)
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// PaymentStatus is the settlement state of a booking
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"

	// PaymentStatusProcessing is the exclusive in-progress marker: a rail has
	// been engaged for this booking and no second initiation may start.
	PaymentStatusProcessing PaymentStatus = "PROCESSING"

	PaymentStatusPaid PaymentStatus = "PAID"
)

// IsValid checks if the payment status is valid
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (p PaymentStatus) String() string {
	return string(p)
}
