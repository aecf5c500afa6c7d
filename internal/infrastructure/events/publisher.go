package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const EventsExchange = "storefront.events"

// Publisher delivers a serialized event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	ch     channel
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger logrus.FieldLogger
}

// NewRabbitPublisher opens a channel on conn and declares the topic exchange.
func NewRabbitPublisher(conn *amqp.Connection, logger logrus.FieldLogger) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newRabbitPublisher(ch, logger)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newRabbitPublisher(ch channel, logger logrus.FieldLogger) (*RabbitPublisher, error) {
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "rabbitmq-publish",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &RabbitPublisher{ch: ch, cb: cb, logger: logger}, nil
}

// Publish fails fast with gobreaker.ErrOpenState while the broker is
// considered down.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		return struct{}{}, p.ch.PublishWithContext(
			pubCtx,
			EventsExchange,
			routingKey,
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				Body:         body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

// NoopPublisher is used when no broker is configured. Events are logged and
// reported as delivered.
type NoopPublisher struct {
	logger logrus.FieldLogger
}

func NewNoopPublisher(logger logrus.FieldLogger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.logger.WithFields(logrus.Fields{
		"routing_key": routingKey,
		"bytes":       len(body),
	}).Debug("event dropped: no broker configured")
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
