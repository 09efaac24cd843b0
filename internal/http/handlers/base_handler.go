// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"charter/internal/modules/allocation"
	"charter/internal/modules/dispatch"
	"charter/internal/modules/fare"
	"charter/internal/modules/quote"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quote.ErrBadRequest),
		errors.Is(err, fare.ErrInvalidInput),
		errors.Is(err, allocation.ErrInvalidInput),
		errors.Is(err, dispatch.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, quote.ErrNotFound),
		errors.Is(err, allocation.ErrNotFound),
		errors.Is(err, fare.ErrAmenityNotFound),
		errors.Is(err, dispatch.ErrDriverNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrInvalidState),
		errors.Is(err, quote.ErrConflict),
		errors.Is(err, dispatch.ErrNoDriver):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, quote.ErrCapacityExceeded):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, fare.ErrNoActiveConfig):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
