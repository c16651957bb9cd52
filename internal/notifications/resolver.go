package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fundi/internal/bookings"
)

// Recipient identifies who should receive a settlement notification.
type Recipient struct {
	Email string
	Name  string
}

// RecipientResolver maps a booking to the client who paid for it.
type RecipientResolver interface {
	ResolveRecipient(ctx context.Context, bookingID string) (*Recipient, error)
}

type dbRecipientResolver struct {
	db *gorm.DB
}

func NewRecipientResolver(db *gorm.DB) RecipientResolver {
	return &dbRecipientResolver{db: db}
}

func (r *dbRecipientResolver) ResolveRecipient(ctx context.Context, bookingID string) (*Recipient, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID %q: %w", bookingID, err)
	}

	var booking bookings.Booking
	if err := r.db.WithContext(ctx).
		Preload("Client").
		Where("id = ?", id).
		First(&booking).Error; err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}

	if booking.Client == nil {
		return nil, fmt.Errorf("booking %s has no client record", bookingID)
	}

	return &Recipient{
		Email: booking.Client.Email,
		Name:  booking.Client.FullName,
	}, nil
}
