package handler

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	carts  service.CartService
	logger logrus.FieldLogger
}

func NewCartHandler(carts service.CartService, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  *int   `json:"quantity" binding:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type removeCartItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
}

// Add puts a product in the caller's cart. Quantity defaults to 1.
// POST /carts/add
func (h *CartHandler) Add(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.carts.AddItem(c.Request.Context(), p.ID, uuid.MustParse(req.ProductID), qty)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, item, "Item added to cart")
}

// Update sets the quantity of an existing line.
// POST /carts/update
func (h *CartHandler) Update(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.carts.UpdateItem(c.Request.Context(), p.ID, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, item, "Cart item updated")
}

// Remove deletes one line.
// DELETE /carts/remove
func (h *CartHandler) Remove(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	var req removeCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.carts.RemoveItem(c.Request.Context(), p.ID, uuid.MustParse(req.ProductID)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, nil, "Item removed from cart")
}

// Clear empties the caller's cart.
// DELETE /carts/clear
func (h *CartHandler) Clear(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	n, err := h.carts.Clear(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"removed": n}, "Cart cleared")
}

// List returns the caller's cart with product details.
// GET /carts
func (h *CartHandler) List(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	items, err := h.carts.List(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, items)
}
