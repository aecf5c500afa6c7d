package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart           = errors.New("your cart is empty")
	ErrForbidden           = errors.New("access denied")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderCreationFailed = errors.New("failed to create order")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity     = errors.New("quantity must be greater than 0")
	ErrUnauthenticated     = errors.New("user not authenticated")
)

type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id %s not found", e.ProductID)
}

type InvalidStatusError struct {
	Status OrderStatus
}

func (e *InvalidStatusError) Error() string {
	valid := make([]string, 0, len(OrderStatuses))
	for _, s := range OrderStatuses {
		valid = append(valid, string(s))
	}
	return fmt.Sprintf("invalid status %q. Valid statuses: %s", e.Status, strings.Join(valid, ", "))
}

type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
	InCart    int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.InCart > 0 {
		return fmt.Sprintf("insufficient stock. Available: %d, Current in cart: %d, Requested additional: %d",
			e.Available, e.InCart, e.Requested)
	}
	return fmt.Sprintf("insufficient stock. Available: %d, Requested: %d", e.Available, e.Requested)
}
