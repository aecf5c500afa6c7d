package handler

import (
	"strconv"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	catalog service.CatalogService
	logger  logrus.FieldLogger
}

func NewProductHandler(catalog service.CatalogService, logger logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// defaultSearchLimit applies when limit is absent, zero or not a number.
const defaultSearchLimit = 12

// Recommendations ranks products against a short free-text query.
// GET /products/recommendations/search?search=&limit=
func (h *ProductHandler) Recommendations(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultSearchLimit
	}

	recs, err := h.catalog.Recommend(c.Request.Context(), c.Query("search"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, recs)
}
