package handler

import (
	"net/http"

	"storefront/internal/database"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db database.Service
}

func NewHealthHandler(db database.Service) *HealthHandler {
	return &HealthHandler{db: db}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	stats := h.db.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
