package database

import (
	"gorm.io/gorm"

	"fundi/internal/bookings"
	"fundi/internal/payments"
	"fundi/internal/users"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&bookings.Booking{},
		&payments.Transaction{},
	)
}
