package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/servicehub/backoffice/internal/db/models"
)

const bookingColumns = `id, service_id, customer_id, status, amount_cents, currency, scheduled_at, notes, created_at, updated_at`

// BookingRepository handles booking database operations. Bookings are created
// by the customer-facing application; the back office only reads them and
// moves them between statuses.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// BookingFilters narrows booking listings
type BookingFilters struct {
	Status     *string
	CustomerID *string
	ServiceID  *string
}

// GetBookingByID retrieves a booking by ID
func (r *BookingRepository) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	b := &models.Booking{}
	err := r.db.GetContext(ctx, b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// ListBookings returns a filtered page of bookings, soonest first, and the total count
func (r *BookingRepository) ListBookings(ctx context.Context, filters BookingFilters, limit, offset int) ([]*models.Booking, int, error) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, paramIndex)
		args = append(args, *filters.Status)
		paramIndex++
	}
	if filters.CustomerID != nil {
		where += fmt.Sprintf(` AND customer_id = $%d`, paramIndex)
		args = append(args, *filters.CustomerID)
		paramIndex++
	}
	if filters.ServiceID != nil {
		where += fmt.Sprintf(` AND service_id = $%d`, paramIndex)
		args = append(args, *filters.ServiceID)
		paramIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where +
		fmt.Sprintf(` ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	bookings := make([]*models.Booking, 0)
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// UpdateBookingStatus sets status and notes and bumps updated_at
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, b *models.Booking) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`,
		b.ID, b.Status, b.Notes, b.UpdatedAt)
	return err
}
