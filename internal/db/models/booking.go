// Package models - booking.go defines customer bookings of catalog services.
package models

import "time"

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// Booking is a customer's reservation of a catalog service
type Booking struct {
	ID          string    `db:"id" json:"id"`
	ServiceID   string    `db:"service_id" json:"service_id"`
	CustomerID  string    `db:"customer_id" json:"customer_id"`
	Status      string    `db:"status" json:"status"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Currency    string    `db:"currency" json:"currency"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Notes       string    `db:"notes" json:"notes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ValidBookingStatus reports whether s is a known booking status
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}
