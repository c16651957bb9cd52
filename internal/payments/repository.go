package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fundi/internal/bookings"
)

// Repository owns the authoritative payment-state transitions on bookings and
// the insert-only transactions table.
type Repository interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)

	// MarkPaymentProcessing acquires the exclusive in-progress marker:
	// a conditional PENDING -> PROCESSING transition. Returns
	// ErrPaymentInProgress when another initiation holds the marker and
	// ErrAlreadyPaid when the booking has already settled.
	MarkPaymentProcessing(ctx context.Context, id uuid.UUID) error

	// ReleasePaymentProcessing reverts PROCESSING -> PENDING after a
	// terminal failure so the client can retry the flow.
	ReleasePaymentProcessing(ctx context.Context, id uuid.UUID) error

	// CommitSettlement performs the paid transition and the transaction
	// insert in one durable database transaction. The booking must hold the
	// PROCESSING marker; an already-paid booking returns ErrAlreadyPaid and
	// inserts nothing.
	CommitSettlement(ctx context.Context, txn *Transaction) error

	// Audit views
	GetTransactionsByBooking(ctx context.Context, bookingID uuid.UUID) ([]Transaction, error)
	GetAllTransactions(ctx context.Context, query TransactionListQuery) ([]Transaction, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetBooking(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	var booking bookings.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) MarkPaymentProcessing(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Where("id = ? AND payment_status = ?", id, bookings.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": bookings.PaymentStatusProcessing,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Conditional write lost: find out which state blocked it
	booking, err := r.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if booking.IsPaid() {
		return ErrAlreadyPaid
	}
	return ErrPaymentInProgress
}

func (r *repository) ReleasePaymentProcessing(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&bookings.Booking{}).
		Where("id = ? AND payment_status = ?", id, bookings.PaymentStatusProcessing).
		Updates(map[string]interface{}{
			"payment_status": bookings.PaymentStatusPending,
			"updated_at":     time.Now(),
		}).Error
}

func (r *repository) CommitSettlement(ctx context.Context, txn *Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&bookings.Booking{}).
			Where("id = ? AND payment_status = ?", txn.BookingID, bookings.PaymentStatusProcessing).
			Updates(map[string]interface{}{
				"payment_status": bookings.PaymentStatusPaid,
				"updated_at":     time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var booking bookings.Booking
			if err := tx.Where("id = ?", txn.BookingID).First(&booking).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBookingNotFound
				}
				return err
			}
			if booking.IsPaid() {
				return ErrAlreadyPaid
			}
			return ErrPaymentInProgress
		}

		return tx.Create(txn).Error
	})
}

func (r *repository) GetTransactionsByBooking(ctx context.Context, bookingID uuid.UUID) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func (r *repository) GetAllTransactions(ctx context.Context, query TransactionListQuery) ([]Transaction, int64, error) {
	var txns []Transaction
	var totalCount int64

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	base := r.db.WithContext(ctx).Model(&Transaction{})
	if query.Method != "" {
		base = base.Where("payment_method = ?", query.Method)
	}
	if query.Status != "" {
		base = base.Where("status = ?", query.Status)
	}

	if err := base.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.
		Preload("Booking").
		Order("created_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&txns).Error

	return txns, totalCount, err
}
