// users.go implements handlers for user account CRUD operations including listing, creating, updating, and deleting users.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/middleware"
	"github.com/servicehub/backoffice/internal/services"
)

// UserManager manages accounts and audits each change
type UserManager interface {
	Create(ctx context.Context, actorID *string, req services.CreateUserRequest) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	Update(ctx context.Context, actorID *string, id string, req services.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actorID *string, id string) error
}

// UserHandlers handles user management endpoints
type UserHandlers struct {
	users UserManager
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(users UserManager) *UserHandlers {
	return &UserHandlers{users: users}
}

// @Summary      List users
// @Description  Get a paginated list of accounts.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "users: []models.User, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users [get]
// ListUsersHandler lists all users with pagination
// GET /api/v1/admin/users?page=1&per_page=20
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := queryPage(c)

		users, total, err := h.users.List(c.Request.Context(), perPage, offset)
		if err != nil {
			respondError(c, err, "Failed to list users")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get user
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/admin/users/{id} [get]
// GetUserHandler retrieves a specific user
// GET /api/v1/admin/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.users.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to get user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Create user
// @Description  Creates an account. Roles default to customer. The change is written to the audit log.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  services.CreateUserRequest  true  "Account"
// @Success      201  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      409  {object}  map[string]interface{}  "Username or email already taken"
// @Router       /api/v1/admin/users [post]
// CreateUserHandler creates a new user
// POST /api/v1/admin/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		user, err := h.users.Create(c.Request.Context(), middleware.ActorID(c), req)
		if err != nil {
			respondError(c, err, "Failed to create user")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// @Summary      Update user
// @Description  Applies a partial update. Only fields whose values change are written to the audit log.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "User ID"
// @Param        body  body  services.UpdateUserRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      409  {object}  map[string]interface{}  "Username or email already taken"
// @Router       /api/v1/admin/users/{id} [put]
// UpdateUserHandler updates a user
// PUT /api/v1/admin/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		user, err := h.users.Update(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req)
		if err != nil {
			respondError(c, err, "Failed to update user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Delete user
// @Tags         Users
// @Security     Bearer
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/admin/users/{id} [delete]
// DeleteUserHandler deletes a user
// DELETE /api/v1/admin/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.users.Delete(c.Request.Context(), middleware.ActorID(c), c.Param("id")); err != nil {
			respondError(c, err, "Failed to delete user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}
