package events

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

const producerName = "storefront"

// EventEnvelope is the common wrapper for every published order event.
type EventEnvelope[T any] struct {
	EventName    string    `json:"eventName"`
	EventVersion int       `json:"eventVersion"`
	EventID      string    `json:"eventId"`
	Producer     string    `json:"producer"`
	PartitionKey string    `json:"partitionKey"`
	OccurredAt   time.Time `json:"occurredAt"`
	Payload      T         `json:"payload"`
}

// Validate ensures the envelope carries the expected event identity.
func (e EventEnvelope[T]) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName: %s", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion: %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	return nil
}

type OrderLinePayload struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	Price     domain.Money `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID   string             `json:"orderId"`
	UserID    string             `json:"userId"`
	Total     domain.Money       `json:"total"`
	Status    string             `json:"status"`
	Items     []OrderLinePayload `json:"items"`
	CreatedAt time.Time          `json:"createdAt"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Status  string `json:"status"`
}

// OrderCreatedEvent builds the outbox row announcing a new order.
func OrderCreatedEvent(o *domain.Order, lines []domain.OrderLine) (*domain.OutboxEvent, error) {
	items := make([]OrderLinePayload, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderLinePayload{
			ProductID: l.ProductID.String(),
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	return newOutboxEvent(domain.EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:   o.ID.String(),
		UserID:    o.UserID.String(),
		Total:     o.Total,
		Status:    string(o.Status),
		Items:     items,
		CreatedAt: o.CreatedAt,
	})
}

func OrderStatusChangedEvent(o *domain.Order) (*domain.OutboxEvent, error) {
	return newOutboxEvent(domain.EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID: o.ID.String(),
		UserID:  o.UserID.String(),
		Status:  string(o.Status),
	})
}

func newOutboxEvent[T any](eventType string, aggregateID uuid.UUID, payload T) (*domain.OutboxEvent, error) {
	env := EventEnvelope[T]{
		EventName:    eventType,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: aggregateID.String(),
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return &domain.OutboxEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     body,
	}, nil
}
