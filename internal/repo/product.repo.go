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

var productFields = []string{
	"id", "name", "price", "stock", "brand", "image_url", "vendor_id", "created_at", "updated_at",
}

func productColumnsAs(alias string) string {
	cols := make([]string, len(productFields))
	for i, f := range productFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

func productDest(p *domain.Product) []any {
	return []any{&p.ID, &p.Name, &p.Price, &p.Stock, &p.Brand, &p.ImageURL, &p.VendorID, &p.CreatedAt, &p.UpdatedAt}
}

// ProductRepo reads the catalog. Products are owned by the catalog service
// and never written here.
type ProductRepo interface {
	FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) ([]domain.Product, error)
	ListIDsByVendor(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

func (r *productRepo) FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := execNode(r.db, tx).QueryRowContext(ctx,
		"SELECT "+productColumnsAs("p")+" FROM products p WHERE p.id = $1", id,
	).Scan(productDest(&p)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

// FindByIDs resolves ids in one round trip. Missing ids are simply absent
// from the result.
func (r *productRepo) FindByIDs(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, execNode(r.db, tx),
		"SELECT "+productColumnsAs("p")+" FROM products p WHERE p.id = ANY(string_to_array($1, ',')::uuid[])",
		joinIDs(ids),
	)
}

func (r *productRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, r.db, "SELECT "+productColumnsAs("p")+" FROM products p ORDER BY p.created_at, p.id")
}

func (r *productRepo) list(ctx context.Context, q Querier, query string, args ...any) ([]domain.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return products, nil
}

func (r *productRepo) ListIDsByVendor(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM products WHERE vendor_id = $1`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("select vendor products: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return ids, nil
}
