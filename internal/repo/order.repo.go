package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// OrderFilter is the closed set of predicates an order listing can apply.
// Zero value matches every order.
type OrderFilter struct {
	UserID *uuid.UUID
	IDs    []uuid.UUID
}

var orderSortClauses = map[domain.OrderSort]string{
	domain.SortTotalAsc:      "total ASC, id ASC",
	domain.SortTotalDesc:     "total DESC, id ASC",
	domain.SortCreatedAtAsc:  "created_at ASC, id ASC",
	domain.SortCreatedAtDesc: "created_at DESC, id ASC",
	domain.SortStatusAsc:     "status ASC, id ASC",
	domain.SortStatusDesc:    "status DESC, id ASC",
}

const orderColumns = "id, user_id, total, status, created_at"

type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateOrderLines(ctx context.Context, tx *sql.Tx, lines []domain.OrderLine) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter, sort domain.OrderSort) ([]domain.Order, error)
	FindOrderIDsByProducts(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
	FindLines(ctx context.Context, orderIDs []uuid.UUID) ([]domain.OrderLine, error)
	ContainsVendorProduct(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error)
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

// CreateOrder inserts the order row and fills in the generated id and
// creation time.
func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	err := execNode(r.db, tx).QueryRowContext(ctx,
		`INSERT INTO orders (user_id, total, status) VALUES ($1, $2, $3) RETURNING id, created_at`,
		order.UserID, order.Total, order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepo) CreateOrderLines(ctx context.Context, tx *sql.Tx, lines []domain.OrderLine) error {
	q := execNode(r.db, tx)
	for i := range lines {
		l := &lines[i]
		err := q.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4) RETURNING id`,
			l.OrderID, l.ProductID, l.Quantity, l.Price,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}
	return nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id).Scan(
		&order.ID,
		&order.UserID,
		&order.Total,
		&order.Status,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter, sort domain.OrderSort) ([]domain.Order, error) {
	query, args := buildOrderListQuery(filter, sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return orders, nil
}

func buildOrderListQuery(filter OrderFilter, sort domain.OrderSort) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.IDs != nil {
		args = append(args, joinIDs(filter.IDs))
		where = append(where, fmt.Sprintf("id = ANY(string_to_array($%d, ',')::uuid[])", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + orderColumns + " FROM orders")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	clause, ok := orderSortClauses[sort]
	if !ok {
		clause = orderSortClauses[domain.SortCreatedAtDesc]
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(clause)
	return b.String(), args
}

func (r *orderRepo) FindOrderIDsByProducts(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT order_id FROM order_items WHERE product_id = ANY(string_to_array($1, ',')::uuid[])`,
		joinIDs(productIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("select vendor order ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return ids, nil
}

func (r *orderRepo) FindLines(ctx context.Context, orderIDs []uuid.UUID) ([]domain.OrderLine, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, price FROM order_items
		 WHERE order_id = ANY(string_to_array($1, ',')::uuid[]) ORDER BY id`,
		joinIDs(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

// ContainsVendorProduct reports whether any line of the order references a
// product owned by vendorID.
func (r *orderRepo) ContainsVendorProduct(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = $1 AND p.vendor_id = $2
		)`,
		orderID, vendorID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check vendor order: %w", err)
	}
	return ok, nil
}

// UpdateOrderStatus returns (nil, nil) when no order has the given id.
func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	var o domain.Order
	err := execNode(r.db, tx).QueryRowContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 RETURNING "+orderColumns,
		status, id,
	).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return &o, nil
}
