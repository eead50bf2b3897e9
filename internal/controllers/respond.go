package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/middleware"
	"github.com/securelab/backend/internal/services"
)

// SnapshotInvalidator is notified after every write so the assistant rereads the database.
type SnapshotInvalidator interface {
	Invalidate()
}

// assistantStatus maps assistant error kinds to HTTP status codes.
func assistantStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConversationBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrConfig), errors.Is(err, services.ErrDataSource):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrSafetyBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTruncated),
		errors.Is(err, services.ErrEmptyResponse),
		errors.Is(err, services.ErrInvalidJSON),
		errors.Is(err, services.ErrAPI),
		errors.Is(err, services.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondAssistantError(c *gin.Context, err error) {
	c.JSON(assistantStatus(err), gin.H{
		"error": services.UserMessage(err),
		"kind":  services.ErrorKind(err),
	})
}

// pagination reads page and limit query parameters, clamping limit to [1, 200].
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "25"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 25
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}

func adminID(c *gin.Context) string {
	return c.GetString(middleware.ContextAdminID)
}

// adminDisplayName prefers the name claim and falls back to the email.
func adminDisplayName(c *gin.Context) string {
	if name := c.GetString(middleware.ContextAdminName); name != "" {
		return name
	}
	if email := c.GetString(middleware.ContextAdminEmail); email != "" {
		return email
	}
	return "Admin"
}
