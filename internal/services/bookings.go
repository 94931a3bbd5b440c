package services

import (
	"context"
	"fmt"

	"github.com/servicehub/backoffice/internal/audit"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/db/repositories"
)

// BookingStore reads bookings and moves them between statuses
type BookingStore interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filters repositories.BookingFilters, limit, offset int) ([]*models.Booking, int, error)
	UpdateBookingStatus(ctx context.Context, b *models.Booking) error
}

// UpdateBookingStatusRequest is the payload for a status change
type UpdateBookingStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
	Notes  *string `json:"notes"`
}

// BookingService exposes bookings to the back office
type BookingService struct {
	store   BookingStore
	auditor Auditor
}

// NewBookingService creates a BookingService
func NewBookingService(store BookingStore, auditor Auditor) *BookingService {
	return &BookingService{store: store, auditor: auditor}
}

// terminal statuses cannot be left
var terminalBookingStatus = map[string]bool{
	models.BookingStatusCompleted: true,
	models.BookingStatusCancelled: true,
}

// Get returns one booking
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// List returns a filtered page of bookings and the total count
func (s *BookingService) List(ctx context.Context, filters repositories.BookingFilters, limit, offset int) ([]*models.Booking, int, error) {
	if filters.Status != nil && !models.ValidBookingStatus(*filters.Status) {
		return nil, 0, invalid("unknown booking status %q", *filters.Status)
	}
	for _, id := range []*string{filters.CustomerID, filters.ServiceID} {
		if id != nil && !validID(*id) {
			return nil, 0, invalid("%q is not a UUID", *id)
		}
	}
	limit, offset = NormalizePage(limit, offset)
	bookings, total, err := s.store.ListBookings(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

// UpdateStatus moves a booking to a new status. Completed and cancelled
// bookings are final.
func (s *BookingService) UpdateStatus(ctx context.Context, actorID *string, id string, req UpdateBookingStatusRequest) (*models.Booking, error) {
	if !models.ValidBookingStatus(req.Status) {
		return nil, invalid("unknown booking status %q", req.Status)
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if terminalBookingStatus[existing.Status] && existing.Status != req.Status {
		return nil, fmt.Errorf("%w: booking is already %s", ErrConflict, existing.Status)
	}
	before := audit.SnapshotOf(existing)

	updated := *existing
	updated.Status = req.Status
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}

	if err := s.store.UpdateBookingStatus(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update booking %s: %w", id, err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableBookings,
		Action:   audit.ActionUpdate,
		RecordID: id,
		OldState: before,
		NewState: audit.SnapshotOf(&updated),
		ActorID:  actorID,
	})
	return &updated, nil
}
