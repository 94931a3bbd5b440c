// bookings.go implements the booking view and status change handlers.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/db/repositories"
	"github.com/servicehub/backoffice/internal/middleware"
	"github.com/servicehub/backoffice/internal/services"
)

// BookingManager exposes bookings and audits status changes
type BookingManager interface {
	Get(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filters repositories.BookingFilters, limit, offset int) ([]*models.Booking, int, error)
	UpdateStatus(ctx context.Context, actorID *string, id string, req services.UpdateBookingStatusRequest) (*models.Booking, error)
}

// BookingHandlers handles booking endpoints
type BookingHandlers struct {
	bookings BookingManager
}

// NewBookingHandlers creates a new BookingHandlers instance
func NewBookingHandlers(bookings BookingManager) *BookingHandlers {
	return &BookingHandlers{bookings: bookings}
}

// @Summary      List bookings
// @Tags         Bookings
// @Security     Bearer
// @Produce      json
// @Param        status       query  string  false  "Filter by status"
// @Param        customer_id  query  string  false  "Filter by customer"
// @Param        service_id   query  string  false  "Filter by catalog service"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        per_page     query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "bookings: []models.Booking, pagination: map"
// @Failure      400  {object}  map[string]interface{}  "Unknown status"
// @Router       /api/v1/admin/bookings [get]
// ListBookingsHandler lists bookings
// GET /api/v1/admin/bookings
func (h *BookingHandlers) ListBookingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := queryPage(c)
		filters := repositories.BookingFilters{
			Status:     optionalQuery(c, "status"),
			CustomerID: optionalQuery(c, "customer_id"),
			ServiceID:  optionalQuery(c, "service_id"),
		}
		if filters.Status != nil && !models.ValidBookingStatus(*filters.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown booking status: " + *filters.Status})
			return
		}

		list, total, err := h.bookings.List(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			respondError(c, err, "Failed to list bookings")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"bookings": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get booking
// @Tags         Bookings
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Booking ID"
// @Success      200  {object}  map[string]interface{}  "booking: models.Booking"
// @Failure      404  {object}  map[string]interface{}  "Booking not found"
// @Router       /api/v1/admin/bookings/{id} [get]
// GetBookingHandler retrieves one booking
// GET /api/v1/admin/bookings/:id
func (h *BookingHandlers) GetBookingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to get booking")
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}

// @Summary      Change booking status
// @Description  Completed and cancelled bookings are final.
// @Tags         Bookings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                               true  "Booking ID"
// @Param        body  body  services.UpdateBookingStatusRequest  true  "New status"
// @Success      200  {object}  map[string]interface{}  "booking: models.Booking"
// @Failure      404  {object}  map[string]interface{}  "Booking not found"
// @Failure      409  {object}  map[string]interface{}  "Booking is final"
// @Router       /api/v1/admin/bookings/{id}/status [put]
// UpdateBookingStatusHandler changes a booking's status
// PUT /api/v1/admin/bookings/:id/status
func (h *BookingHandlers) UpdateBookingStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.UpdateBookingStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		booking, err := h.bookings.UpdateStatus(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req)
		if err != nil {
			respondError(c, err, "Failed to update booking")
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}
