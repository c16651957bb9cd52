package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrNotCancellable     = errors.New("booking cannot be cancelled in its current state")
	ErrNotCompletable     = errors.New("booking cannot be completed in its current state")
	ErrPaymentOutstanding = errors.New("booking must be paid before it can be completed")
)

// Service interface defines the contract for booking business logic
type Service interface {
	CreateBooking(ctx context.Context, clientID uuid.UUID, req CreateBookingRequest) (*BookingResponse, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	GetClientBookings(ctx context.Context, clientID uuid.UUID, query BookingListQuery) (*BookingListResponse, error)
	GetProviderBookings(ctx context.Context, providerID uuid.UUID, query BookingListQuery) (*BookingListResponse, error)
	GetAllBookings(ctx context.Context, query BookingListQuery) (*BookingListResponse, error)
	CancelBooking(ctx context.Context, bookingID, requesterID uuid.UUID) error
	CompleteBooking(ctx context.Context, bookingID, providerID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService creates a new booking service instance
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateBooking(ctx context.Context, clientID uuid.UUID, req CreateBookingRequest) (*BookingResponse, error) {
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("invalid provider ID: %w", err)
	}

	serviceDate, err := time.Parse("2006-01-02", req.ServiceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid service date, expected YYYY-MM-DD: %w", err)
	}

	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return nil, fmt.Errorf("invalid start time, expected HH:MM: %w", err)
	}
	if _, err := time.Parse("15:04", req.EndTime); err != nil {
		return nil, fmt.Errorf("invalid end time, expected HH:MM: %w", err)
	}
	if req.EndTime <= req.StartTime {
		return nil, fmt.Errorf("end time must be after start time")
	}

	bookingRef, err := s.generateBookingReference()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	booking := &Booking{
		ClientID:      clientID,
		ProviderID:    providerID,
		ServiceDate:   serviceDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalAmount:   req.TotalAmount,
		PlatformFee:   req.PlatformFee,
		Status:        string(StatusConfirmed),
		PaymentStatus: string(PaymentStatusPending),
		BookingRef:    bookingRef,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	resp := booking.ToResponse()
	return &resp, nil
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetBookingByIDWithRelations(ctx, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (s *service) GetClientBookings(ctx context.Context, clientID uuid.UUID, query BookingListQuery) (*BookingListResponse, error) {
	items, total, err := s.repo.GetClientBookings(ctx, clientID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.toListResponse(items, total, query), nil
}

func (s *service) GetProviderBookings(ctx context.Context, providerID uuid.UUID, query BookingListQuery) (*BookingListResponse, error) {
	items, total, err := s.repo.GetProviderBookings(ctx, providerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.toListResponse(items, total, query), nil
}

func (s *service) GetAllBookings(ctx context.Context, query BookingListQuery) (*BookingListResponse, error) {
	items, total, err := s.repo.GetAllBookings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.toListResponse(items, total, query), nil
}

func (s *service) CancelBooking(ctx context.Context, bookingID, requesterID uuid.UUID) error {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return ErrBookingNotFound
	}

	if booking.ClientID != requesterID && booking.ProviderID != requesterID {
		return fmt.Errorf("booking does not belong to requester")
	}

	if !Status(booking.Status).CanBeCancelled() {
		return ErrNotCancellable
	}

	now := time.Now()
	return s.repo.UpdateBookingStatus(ctx, bookingID, StatusCancelled, &now)
}

// CompleteBooking marks a booking COMPLETED. A booking must have reached
// payment_status PAID before it is eligible.
func (s *service) CompleteBooking(ctx context.Context, bookingID, providerID uuid.UUID) error {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return ErrBookingNotFound
	}

	if booking.ProviderID != providerID {
		return fmt.Errorf("booking does not belong to provider")
	}

	if !Status(booking.Status).CanComplete() {
		return ErrNotCompletable
	}

	if !booking.IsPaid() {
		return ErrPaymentOutstanding
	}

	now := time.Now()
	return s.repo.UpdateBookingStatus(ctx, bookingID, StatusCompleted, &now)
}

func (s *service) toListResponse(items []Booking, total int64, query BookingListQuery) *BookingListResponse {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	responses := make([]BookingResponse, 0, len(items))
	for i := range items {
		responses = append(responses, items[i].ToResponse())
	}

	return &BookingListResponse{
		Bookings:   responses,
		TotalCount: total,
		Page:       query.Page,
		TotalPages: CalculateTotalPages(total, query.Limit),
	}
}

// generateBookingReference creates a short human-readable reference like FND-8K3QZ2M7
func (s *service) generateBookingReference() (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	ref := make([]byte, 8)
	for i := range ref {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		ref[i] = charset[n.Int64()]
	}
	return "FND-" + string(ref), nil
}
