// catalog.go implements handlers for the service catalog.
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

// CatalogManager manages catalog entries and audits each change
type CatalogManager interface {
	Create(ctx context.Context, actorID *string, req services.CreateServiceRequest) (*models.Service, error)
	Get(ctx context.Context, id string) (*models.Service, error)
	List(ctx context.Context, filters repositories.ServiceFilters, limit, offset int) ([]*models.Service, int, error)
	Update(ctx context.Context, actorID *string, id string, req services.UpdateServiceRequest) (*models.Service, error)
	Delete(ctx context.Context, actorID *string, id string) error
}

// CatalogHandlers handles catalog endpoints
type CatalogHandlers struct {
	catalog CatalogManager
}

// NewCatalogHandlers creates a new CatalogHandlers instance
func NewCatalogHandlers(catalog CatalogManager) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// @Summary      List catalog services
// @Tags         Catalog
// @Security     Bearer
// @Produce      json
// @Param        provider_id  query  string  false  "Filter by provider"
// @Param        category     query  string  false  "Filter by category"
// @Param        active       query  bool    false  "Only active entries"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        per_page     query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "services: []models.Service, pagination: map"
// @Router       /api/v1/admin/services [get]
// ListServicesHandler lists catalog entries
// GET /api/v1/admin/services
func (h *CatalogHandlers) ListServicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := queryPage(c)
		filters := repositories.ServiceFilters{
			ProviderID: optionalQuery(c, "provider_id"),
			Category:   optionalQuery(c, "category"),
			ActiveOnly: c.Query("active") == "true",
		}

		list, total, err := h.catalog.List(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			respondError(c, err, "Failed to list services")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"services": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get catalog service
// @Tags         Catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Service ID"
// @Success      200  {object}  map[string]interface{}  "service: models.Service"
// @Failure      404  {object}  map[string]interface{}  "Service not found"
// @Router       /api/v1/admin/services/{id} [get]
// GetServiceHandler retrieves one catalog entry
// GET /api/v1/admin/services/:id
func (h *CatalogHandlers) GetServiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		svc, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to get service")
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": svc})
	}
}

// @Summary      Create catalog service
// @Tags         Catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  services.CreateServiceRequest  true  "Catalog entry"
// @Success      201  {object}  map[string]interface{}  "service: models.Service"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Router       /api/v1/admin/services [post]
// CreateServiceHandler adds a catalog entry
// POST /api/v1/admin/services
func (h *CatalogHandlers) CreateServiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.CreateServiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		svc, err := h.catalog.Create(c.Request.Context(), middleware.ActorID(c), req)
		if err != nil {
			respondError(c, err, "Failed to create service")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"service": svc})
	}
}

// @Summary      Update catalog service
// @Tags         Catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                         true  "Service ID"
// @Param        body  body  services.UpdateServiceRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}  "service: models.Service"
// @Failure      404  {object}  map[string]interface{}  "Service not found"
// @Router       /api/v1/admin/services/{id} [put]
// UpdateServiceHandler changes a catalog entry
// PUT /api/v1/admin/services/:id
func (h *CatalogHandlers) UpdateServiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.UpdateServiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		svc, err := h.catalog.Update(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req)
		if err != nil {
			respondError(c, err, "Failed to update service")
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": svc})
	}
}

// @Summary      Delete catalog service
// @Tags         Catalog
// @Security     Bearer
// @Param        id  path  string  true  "Service ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "Service not found"
// @Router       /api/v1/admin/services/{id} [delete]
// DeleteServiceHandler removes a catalog entry
// DELETE /api/v1/admin/services/:id
func (h *CatalogHandlers) DeleteServiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.catalog.Delete(c.Request.Context(), middleware.ActorID(c), c.Param("id")); err != nil {
			respondError(c, err, "Failed to delete service")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
	}
}
