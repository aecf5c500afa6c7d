package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/domain"
)

type OutboxRepo interface {
	// Insert must run in the transaction of the write that produced the event.
	Insert(ctx context.Context, tx *sql.Tx, event *domain.OutboxEvent) error
	FindUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
}

type outboxRepo struct {
	db *sql.DB
}

func NewOutboxRepo(db *sql.DB) OutboxRepo {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Insert(ctx context.Context, tx *sql.Tx, event *domain.OutboxEvent) error {
	query := `INSERT INTO order_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3) RETURNING id, created_at`

	err := execNode(r.db, tx).QueryRowContext(ctx, query,
		event.AggregateID, event.EventType, string(event.Payload),
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order_event: %w", err)
	}
	return nil
}

// FindUnpublished returns the oldest pending events first.
func (r *outboxRepo) FindUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM order_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select order_events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var (
			e       domain.OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order_event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return events, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_events SET published_at = $2 WHERE id = $1 AND published_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("mark order_event published: %w", err)
	}
	return nil
}
