// errors.go maps business errors onto HTTP responses shared by the admin handlers.
package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/services"
)

// respondError writes the status matching err. Unknown errors become a 500
// carrying the fallback message; the underlying error is only logged.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	default:
		slog.ErrorContext(c.Request.Context(), fallback, "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// queryLimit reads ?limit=. Missing or malformed values return 0 so the
// component applies its own default.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}

// maxPage bounds ?page= so the computed offset cannot overflow.
const maxPage = 100000

// queryPage reads ?page= and ?per_page= and returns limit/offset plus the
// normalized page values for the pagination envelope.
func queryPage(c *gin.Context) (page, perPage, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	perPage, _ = services.NormalizePage(perPage, 0)
	return page, perPage, (page - 1) * perPage
}

// optionalQuery returns a pointer to the query value, or nil when absent
func optionalQuery(c *gin.Context, key string) *string {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil
	}
	return &v
}
