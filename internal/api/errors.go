package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/weatherapp/internal/services"
)

type errorResponse struct {
	Message string `json:"message"`
}

// writeError maps a service error to a status code and JSON body.
// Unclassified errors become a 500 with a generic message.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch {
		case errors.Is(svcErr.Kind, services.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Message: svcErr.Message})
			return
		case errors.Is(svcErr.Kind, services.ErrInvalidInput), errors.Is(svcErr.Kind, services.ErrConflict):
			c.JSON(http.StatusBadRequest, errorResponse{Message: svcErr.Message})
			return
		}
	}

	logger.ErrorContext(c.Request.Context(), "Request failed",
		"method", c.Request.Method,
		"route", c.FullPath(),
		"request_id", c.GetString(requestIDKey),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, errorResponse{Message: "An unexpected error occurred."})
}

// pathInt parses an integer path parameter, writing a 400 when it is
// malformed or does not fit the 32-bit id columns.
func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "The " + name + " path parameter is out of range."})
		return 0, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "The " + name + " path parameter must be an integer."})
		return 0, false
	}
	return int(v), true
}

// bindJSON decodes the request body into dst, writing a 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body: " + err.Error()})
		return false
	}
	return true
}
