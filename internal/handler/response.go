package handler

import (
	"errors"
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func respondList[T any](c *gin.Context, items []T) {
	n := len(items)
	c.JSON(http.StatusOK, Response{Success: true, Data: items, Count: &n})
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message})
}

// respondError maps domain errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a bare 500.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	abortWithError(c, status, message)
}

func classify(err error) (int, string) {
	var (
		productNotFound *domain.ProductNotFoundError
		invalidStatus   *domain.InvalidStatusError
		noStock         *domain.InsufficientStockError
	)
	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &invalidStatus), errors.As(err, &noStock):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &productNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCartItemNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrOrderCreationFailed):
		return http.StatusInternalServerError, domain.ErrOrderCreationFailed.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
