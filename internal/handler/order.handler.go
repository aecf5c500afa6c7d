package handler

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	orders service.OrderService
	logger logrus.FieldLogger
}

func NewOrderHandler(orders service.OrderService, logger logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create checks out the caller's cart.
// POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	order, err := h.orders.CreateOrderFromCart(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, order, "Order created successfully")
}

// List returns the orders visible to the caller's role.
// GET /orders?sort=
func (h *OrderHandler) List(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	sort := domain.ParseOrderSort(c.Query("sort"))
	orders, err := h.orders.GetOrdersByRole(c.Request.Context(), p.ID, p.Role, sort)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, orders)
}

// Get returns one order if the caller's role may see it.
// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.GetOrderForRole(c.Request.Context(), id, p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, order, "")
}

// UpdateStatus sets the order status. Admin only.
// PUT /orders/:id
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, order, "Order status updated successfully")
}
