package bookings

// CreateBookingRequest represents a new booking from a client
type CreateBookingRequest struct {
	ProviderID  string  `json:"provider_id" binding:"required,uuid"`
	ServiceDate string  `json:"service_date" binding:"required"` // YYYY-MM-DD
	StartTime   string  `json:"start_time" binding:"required"`   // HH:MM
	EndTime     string  `json:"end_time" binding:"required"`     // HH:MM
	TotalAmount float64 `json:"total_amount" binding:"required,gt=0"`
	PlatformFee float64 `json:"platform_fee" binding:"gte=0"`
}

// BookingListQuery holds filters for booking listings
type BookingListQuery struct {
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	DateFrom      string `form:"date_from"`
	DateTo        string `form:"date_to"`
}
