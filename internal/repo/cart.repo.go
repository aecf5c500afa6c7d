package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

type CartRepo interface {
	// LockOwner takes the user's row lock inside tx. Every transaction that
	// inserts into or empties a cart holds it first, so a checkout and an
	// add for the same user run one after the other.
	LockOwner(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	// LockByUser reads the user's lines with FOR UPDATE inside tx.
	LockByUser(ctx context.Context, tx *sql.Tx, userID uuid.UUID) ([]domain.CartLine, error)
	FindLine(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID) (*domain.CartLine, error)
	Upsert(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID, quantity int) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID, quantity int) (*domain.CartLine, error)
	Remove(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (int64, error)
	ListItems(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)
}

type cartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepo {
	return &cartRepo{db: db}
}

const cartColumns = "id, user_id, product_id, quantity, created_at"

func scanCartLine(row interface{ Scan(...any) error }) (domain.CartLine, error) {
	var l domain.CartLine
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt)
	return l, err
}

func (r *cartRepo) LockOwner(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock cart owner: %w", err)
	}
	return nil
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	return r.listLines(ctx, r.db, "SELECT "+cartColumns+" FROM cart_items WHERE user_id = $1 ORDER BY id", userID)
}

func (r *cartRepo) LockByUser(ctx context.Context, tx *sql.Tx, userID uuid.UUID) ([]domain.CartLine, error) {
	return r.listLines(ctx, execNode(r.db, tx),
		"SELECT "+cartColumns+" FROM cart_items WHERE user_id = $1 ORDER BY id FOR UPDATE", userID)
}

func (r *cartRepo) listLines(ctx context.Context, q Querier, query string, userID uuid.UUID) ([]domain.CartLine, error) {
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

// FindLine returns (nil, nil) when the user has no line for the product.
// Inside a transaction the row is locked.
func (r *cartRepo) FindLine(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID) (*domain.CartLine, error) {
	query := "SELECT " + cartColumns + " FROM cart_items WHERE user_id = $1 AND product_id = $2"
	if tx != nil {
		query += " FOR UPDATE"
	}
	l, err := scanCartLine(execNode(r.db, tx).QueryRowContext(ctx, query, userID, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cart_item: %w", err)
	}
	return &l, nil
}

// Upsert writes the line with the given absolute quantity.
func (r *cartRepo) Upsert(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID, quantity int) (*domain.CartLine, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING ` + cartColumns
	l, err := scanCartLine(execNode(r.db, tx).QueryRowContext(ctx, query, userID, productID, quantity))
	if err != nil {
		return nil, fmt.Errorf("upsert cart_item: %w", err)
	}
	return &l, nil
}

// UpdateQuantity returns (nil, nil) when the line does not exist.
func (r *cartRepo) UpdateQuantity(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID, quantity int) (*domain.CartLine, error) {
	query := `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2 RETURNING ` + cartColumns
	l, err := scanCartLine(execNode(r.db, tx).QueryRowContext(ctx, query, userID, productID, quantity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update cart_item: %w", err)
	}
	return &l, nil
}

func (r *cartRepo) Remove(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID) (bool, error) {
	res, err := execNode(r.db, tx).ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("delete cart_item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *cartRepo) Clear(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (int64, error) {
	res, err := execNode(r.db, tx).ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListItems joins each line with its product. Lines whose product is gone
// are left out.
func (r *cartRepo) ListItems(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity,
		       ` + productColumnsAs("p") + `
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		dest := append([]any{&it.ID, &it.UserID, &it.ProductID, &it.Quantity}, productDest(&it.Product)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}
