package bookings

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	bookings map[uuid.UUID]*Booking
}

func newMemoryRepo(bs ...*Booking) *memoryRepo {
	repo := &memoryRepo{bookings: make(map[uuid.UUID]*Booking)}
	for _, b := range bs {
		repo.bookings[b.ID] = b
	}
	return repo
}

func (r *memoryRepo) CreateBooking(ctx context.Context, booking *Booking) error {
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now()
	r.bookings[booking.ID] = booking
	return nil
}

func (r *memoryRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (r *memoryRepo) GetBookingByIDWithRelations(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.GetBookingByID(ctx, id)
}

func (r *memoryRepo) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status Status, at *time.Time) error {
	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = string(status)
	switch status {
	case StatusCancelled:
		b.CancelledAt = at
	case StatusCompleted:
		b.CompletedAt = at
	}
	return nil
}

func (r *memoryRepo) GetClientBookings(ctx context.Context, clientID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	var result []Booking
	for _, b := range r.bookings {
		if b.ClientID == clientID {
			result = append(result, *b)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memoryRepo) GetProviderBookings(ctx context.Context, providerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	var result []Booking
	for _, b := range r.bookings {
		if b.ProviderID == providerID {
			result = append(result, *b)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memoryRepo) GetAllBookings(ctx context.Context, query BookingListQuery) ([]Booking, int64, error) {
	var result []Booking
	for _, b := range r.bookings {
		result = append(result, *b)
	}
	return result, int64(len(result)), nil
}

func confirmedBooking(paymentStatus PaymentStatus) *Booking {
	return &Booking{
		ID:            uuid.New(),
		ClientID:      uuid.New(),
		ProviderID:    uuid.New(),
		ServiceDate:   time.Now().AddDate(0, 0, 7),
		StartTime:     "09:00",
		EndTime:       "11:00",
		TotalAmount:   50.0,
		Status:        string(StatusConfirmed),
		PaymentStatus: string(paymentStatus),
		BookingRef:    "FND-TEST0001",
	}
}

func TestCreateBooking(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo)
	clientID := uuid.New()

	resp, err := service.CreateBooking(context.Background(), clientID, CreateBookingRequest{
		ProviderID:  uuid.NewString(),
		ServiceDate: "2026-09-15",
		StartTime:   "09:00",
		EndTime:     "11:00",
		TotalAmount: 75.0,
		PlatformFee: 7.5,
	})
	require.NoError(t, err)

	assert.Equal(t, string(StatusConfirmed), resp.Status)
	assert.Equal(t, string(PaymentStatusPending), resp.PaymentStatus)
	assert.Regexp(t, regexp.MustCompile(`^FND-[A-Z2-9]{8}$`), resp.BookingRef)
}

func TestCreateBooking_Validation(t *testing.T) {
	service := NewService(newMemoryRepo())
	clientID := uuid.New()

	tests := []struct {
		name string
		req  CreateBookingRequest
	}{
		{"bad provider id", CreateBookingRequest{ProviderID: "nope", ServiceDate: "2026-09-15", StartTime: "09:00", EndTime: "11:00", TotalAmount: 10}},
		{"bad date", CreateBookingRequest{ProviderID: uuid.NewString(), ServiceDate: "15/09/2026", StartTime: "09:00", EndTime: "11:00", TotalAmount: 10}},
		{"bad start time", CreateBookingRequest{ProviderID: uuid.NewString(), ServiceDate: "2026-09-15", StartTime: "9am", EndTime: "11:00", TotalAmount: 10}},
		{"end before start", CreateBookingRequest{ProviderID: uuid.NewString(), ServiceDate: "2026-09-15", StartTime: "11:00", EndTime: "09:00", TotalAmount: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateBooking(context.Background(), clientID, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestCompleteBooking_RequiresPayment(t *testing.T) {
	booking := confirmedBooking(PaymentStatusPending)
	repo := newMemoryRepo(booking)
	service := NewService(repo)

	err := service.CompleteBooking(context.Background(), booking.ID, booking.ProviderID)
	assert.ErrorIs(t, err, ErrPaymentOutstanding)
	assert.Equal(t, string(StatusConfirmed), booking.Status)
}

func TestCompleteBooking_Paid(t *testing.T) {
	booking := confirmedBooking(PaymentStatusPaid)
	repo := newMemoryRepo(booking)
	service := NewService(repo)

	require.NoError(t, service.CompleteBooking(context.Background(), booking.ID, booking.ProviderID))
	assert.Equal(t, string(StatusCompleted), booking.Status)
	assert.NotNil(t, booking.CompletedAt)
}

func TestCompleteBooking_WrongProvider(t *testing.T) {
	booking := confirmedBooking(PaymentStatusPaid)
	service := NewService(newMemoryRepo(booking))

	err := service.CompleteBooking(context.Background(), booking.ID, uuid.New())
	assert.Error(t, err)
}

func TestCancelBooking(t *testing.T) {
	booking := confirmedBooking(PaymentStatusPending)
	service := NewService(newMemoryRepo(booking))

	require.NoError(t, service.CancelBooking(context.Background(), booking.ID, booking.ClientID))
	assert.Equal(t, string(StatusCancelled), booking.Status)
	assert.NotNil(t, booking.CancelledAt)
}

func TestCancelBooking_CompletedNotCancellable(t *testing.T) {
	booking := confirmedBooking(PaymentStatusPaid)
	booking.Status = string(StatusCompleted)
	service := NewService(newMemoryRepo(booking))

	err := service.CancelBooking(context.Background(), booking.ID, booking.ClientID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelBooking_StrangerRejected(t *testing.T) {
	booking := confirmedBooking(PaymentStatusPending)
	service := NewService(newMemoryRepo(booking))

	err := service.CancelBooking(context.Background(), booking.ID, uuid.New())
	assert.Error(t, err)
}
