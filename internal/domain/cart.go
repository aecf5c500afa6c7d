package domain

import (
	"time"

	"github.com/google/uuid"
)

type CartLine struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartItem is a cart line joined with the product it points at.
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Product   Product   `json:"product"`
}
