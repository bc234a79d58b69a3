package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/models"
)

// StatusFor maps the service error taxonomy to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError writes err with the mapped status. Client errors carry the error
// text; anything unclassified is logged and answered with the generic message.
func ServiceError(c *gin.Context, logger *zap.Logger, err error, generic string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(generic, zap.Error(err), zap.String("path", c.FullPath()))
		Internal(c, generic)
		return
	}
	Fail(c, status, err.Error())
}
