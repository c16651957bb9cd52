package bookings

import "time"

// BookingResponse is the API shape of a booking
type BookingResponse struct {
	ID            string     `json:"id"`
	BookingRef    string     `json:"booking_ref"`
	ClientID      string     `json:"client_id"`
	ProviderID    string     `json:"provider_id"`
	ServiceDate   string     `json:"service_date"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	TotalAmount   float64    `json:"total_amount"`
	PlatformFee   float64    `json:"platform_fee"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	CreatedAt     time.Time  `json:"created_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// BookingListResponse is a paginated booking listing
type BookingListResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

// ToResponse converts a Booking to its API shape
func (b *Booking) ToResponse() BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		BookingRef:    b.BookingRef,
		ClientID:      b.ClientID.String(),
		ProviderID:    b.ProviderID.String(),
		ServiceDate:   b.ServiceDate.Format("2006-01-02"),
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		TotalAmount:   b.TotalAmount,
		PlatformFee:   b.PlatformFee,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
		CancelledAt:   b.CancelledAt,
		CompletedAt:   b.CompletedAt,
	}
}
