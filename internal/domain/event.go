package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order.created.v1"
	EventOrderStatusChanged = "order.status_changed.v1"
)

// OutboxEvent is an order event stored alongside the write that produced it
// and relayed to the broker afterwards.
type OutboxEvent struct {
	ID          int64
	AggregateID uuid.UUID
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}
