package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses is the fixed status set, in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderProcessing,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
}

// Valid reports membership in the status set. Any member may follow any
// other; there is no transition graph.
func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Order struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"userId"`
	Total     Money       `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// OrderLine is the price/quantity snapshot of one purchased product.
type OrderLine struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     Money     `json:"price"`
}

// Subtotal in cents.
func (l OrderLine) Subtotal() int64 {
	return l.Price.Cents() * int64(l.Quantity)
}

type OrderWithLines struct {
	Order
	Items []OrderLine `json:"items"`
}

// OrderSort selects the ordering of a role-scoped order listing.
type OrderSort string

const (
	SortTotalAsc      OrderSort = "total"
	SortTotalDesc     OrderSort = "-total"
	SortCreatedAtAsc  OrderSort = "createdAt"
	SortCreatedAtDesc OrderSort = "-createdAt"
	SortStatusAsc     OrderSort = "status"
	SortStatusDesc    OrderSort = "-status"
)

// ParseOrderSort maps a raw sort key onto the closed set; anything
// unrecognised, including the empty string, falls back to newest first.
func ParseOrderSort(raw string) OrderSort {
	switch s := OrderSort(raw); s {
	case SortTotalAsc, SortTotalDesc, SortCreatedAtAsc, SortCreatedAtDesc, SortStatusAsc, SortStatusDesc:
		return s
	default:
		return SortCreatedAtDesc
	}
}
