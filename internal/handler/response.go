package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/timerkey"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:   errType,
		Message: message,
	})
}

// respondDomainError maps service errors onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTimeOfDay),
		errors.Is(err, domain.ErrInvalidWeekday),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, timerkey.ErrMalformedKey):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrReminderDisabled):
		respondError(c, http.StatusConflict, "reminder_disabled", err.Error())
	case errors.Is(err, domain.ErrStoreIO):
		slog.ErrorContext(ctx, "store unavailable",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusServiceUnavailable, "store_unavailable", "reminder store is unavailable")
	default:
		slog.ErrorContext(ctx, "request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
