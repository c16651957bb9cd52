package payments

import "time"

// IntentResponse returns the client-side confirmation secret for the card rail
type IntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// PushResponse returns the correlation identifiers for the mobile-money rail
type PushResponse struct {
	Success           bool   `json:"success"`
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	CustomerMessage   string `json:"customer_message,omitempty"`
}

// PushStatusResponse reports the resolution state of a push attempt.
// An attempt with no recorded outcome is "pending", never an error.
type PushStatusResponse struct {
	Status        string     `json:"status"` // pending | completed | failed
	TransactionID string     `json:"transaction_id,omitempty"`
	Amount        int64      `json:"amount,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

// TransactionResponse is the API shape of a settled-payment record
type TransactionResponse struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"booking_id"`
	Reference     string    `json:"reference"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionListResponse is a paginated transaction listing
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int64                 `json:"total_count"`
	Page         int                   `json:"page"`
}

// ToResponse converts a Transaction to its API shape
func (t *Transaction) ToResponse() TransactionResponse {
	return TransactionResponse{
		ID:            t.ID.String(),
		BookingID:     t.BookingID.String(),
		Reference:     t.Reference,
		Amount:        t.Amount,
		Currency:      t.Currency,
		PaymentMethod: t.PaymentMethod,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
	}
}
