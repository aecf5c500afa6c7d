package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repo"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// store backs the fake repositories. Writes are applied immediately; tests
// pair it with sqlmock to assert on transaction boundaries.
type store struct {
	orders   []domain.Order
	lines    []domain.OrderLine
	products map[uuid.UUID]domain.Product
	cart     map[uuid.UUID][]domain.CartLine
	events   []domain.OutboxEvent

	createOrderErr error
	createLinesErr error
	clearCalls     int
	lastSort       domain.OrderSort
	nextLineID     int64
	calls          []string
}

func newStore() *store {
	return &store{
		products: map[uuid.UUID]domain.Product{},
		cart:     map[uuid.UUID][]domain.CartLine{},
	}
}

func (s *store) addProduct(vendorID uuid.UUID, name, price string, stock int) domain.Product {
	p := domain.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    domain.MustMoney(price),
		Stock:    stock,
		VendorID: vendorID,
	}
	s.products[p.ID] = p
	return p
}

func (s *store) addCartLine(userID, productID uuid.UUID, qty int) {
	s.nextLineID++
	s.cart[userID] = append(s.cart[userID], domain.CartLine{
		ID: s.nextLineID, UserID: userID, ProductID: productID, Quantity: qty,
	})
}

func (s *store) addOrder(userID uuid.UUID, total string, lines ...domain.OrderLine) domain.Order {
	o := domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Total:     domain.MustMoney(total),
		Status:    domain.OrderPending,
		CreatedAt: time.Now(),
	}
	s.orders = append(s.orders, o)
	for _, l := range lines {
		l.OrderID = o.ID
		s.lines = append(s.lines, l)
	}
	return o
}

type fakeOrderRepo struct{ s *store }

func (r fakeOrderRepo) CreateOrder(_ context.Context, _ *sql.Tx, o *domain.Order) error {
	if r.s.createOrderErr != nil {
		return r.s.createOrderErr
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	r.s.orders = append(r.s.orders, *o)
	return nil
}

func (r fakeOrderRepo) CreateOrderLines(_ context.Context, _ *sql.Tx, lines []domain.OrderLine) error {
	if r.s.createLinesErr != nil {
		return r.s.createLinesErr
	}
	r.s.lines = append(r.s.lines, lines...)
	return nil
}

func (r fakeOrderRepo) FindById(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range r.s.orders {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, nil
}

func (r fakeOrderRepo) List(_ context.Context, filter repo.OrderFilter, sort domain.OrderSort) ([]domain.Order, error) {
	r.s.lastSort = sort
	out := []domain.Order{}
	for _, o := range r.s.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.IDs != nil && !containsID(filter.IDs, o.ID) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r fakeOrderRepo) FindOrderIDsByProducts(_ context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, l := range r.s.lines {
		if containsID(productIDs, l.ProductID) && !containsID(ids, l.OrderID) {
			ids = append(ids, l.OrderID)
		}
	}
	return ids, nil
}

func (r fakeOrderRepo) FindLines(_ context.Context, orderIDs []uuid.UUID) ([]domain.OrderLine, error) {
	var out []domain.OrderLine
	for _, l := range r.s.lines {
		if containsID(orderIDs, l.OrderID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r fakeOrderRepo) ContainsVendorProduct(_ context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	for _, l := range r.s.lines {
		if l.OrderID == orderID && r.s.products[l.ProductID].VendorID == vendorID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeOrderRepo) UpdateOrderStatus(_ context.Context, _ *sql.Tx, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	for i := range r.s.orders {
		if r.s.orders[i].ID == id {
			r.s.orders[i].Status = status
			o := r.s.orders[i]
			return &o, nil
		}
	}
	return nil, nil
}

type fakeCartRepo struct{ s *store }

func (r fakeCartRepo) LockOwner(_ context.Context, _ *sql.Tx, _ uuid.UUID) error {
	r.s.calls = append(r.s.calls, "lock-owner")
	return nil
}

func (r fakeCartRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	return append([]domain.CartLine(nil), r.s.cart[userID]...), nil
}

func (r fakeCartRepo) LockByUser(ctx context.Context, _ *sql.Tx, userID uuid.UUID) ([]domain.CartLine, error) {
	r.s.calls = append(r.s.calls, "lock-cart")
	return r.ListByUser(ctx, userID)
}

func (r fakeCartRepo) FindLine(_ context.Context, _ *sql.Tx, userID, productID uuid.UUID) (*domain.CartLine, error) {
	r.s.calls = append(r.s.calls, "find-line")
	for _, l := range r.s.cart[userID] {
		if l.ProductID == productID {
			l := l
			return &l, nil
		}
	}
	return nil, nil
}

func (r fakeCartRepo) Upsert(_ context.Context, _ *sql.Tx, userID, productID uuid.UUID, qty int) (*domain.CartLine, error) {
	lines := r.s.cart[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = qty
			l := lines[i]
			return &l, nil
		}
	}
	r.s.addCartLine(userID, productID, qty)
	l := r.s.cart[userID][len(r.s.cart[userID])-1]
	return &l, nil
}

func (r fakeCartRepo) UpdateQuantity(_ context.Context, _ *sql.Tx, userID, productID uuid.UUID, qty int) (*domain.CartLine, error) {
	lines := r.s.cart[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = qty
			l := lines[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (r fakeCartRepo) Remove(_ context.Context, _ *sql.Tx, userID, productID uuid.UUID) (bool, error) {
	lines := r.s.cart[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			r.s.cart[userID] = append(lines[:i], lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r fakeCartRepo) Clear(_ context.Context, _ *sql.Tx, userID uuid.UUID) (int64, error) {
	r.s.clearCalls++
	n := len(r.s.cart[userID])
	delete(r.s.cart, userID)
	return int64(n), nil
}

func (r fakeCartRepo) ListItems(_ context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	items := []domain.CartItem{}
	for _, l := range r.s.cart[userID] {
		p, ok := r.s.products[l.ProductID]
		if !ok {
			continue
		}
		items = append(items, domain.CartItem{ID: l.ID, UserID: l.UserID, ProductID: l.ProductID, Quantity: l.Quantity, Product: p})
	}
	return items, nil
}

type fakeProductRepo struct{ s *store }

func (r fakeProductRepo) FindById(_ context.Context, _ *sql.Tx, id uuid.UUID) (*domain.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r fakeProductRepo) FindByIDs(_ context.Context, _ *sql.Tx, ids []uuid.UUID) ([]domain.Product, error) {
	var out []domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r fakeProductRepo) ListIDsByVendor(_ context.Context, vendorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, p := range r.s.products {
		if p.VendorID == vendorID {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (r fakeProductRepo) ListAll(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range r.s.products {
		out = append(out, p)
	}
	return out, nil
}

type fakeOutboxRepo struct{ s *store }

func (r fakeOutboxRepo) Insert(_ context.Context, _ *sql.Tx, ev *domain.OutboxEvent) error {
	ev.ID = int64(len(r.s.events) + 1)
	r.s.events = append(r.s.events, *ev)
	return nil
}

func (r fakeOutboxRepo) FindUnpublished(_ context.Context, limit int) ([]domain.OutboxEvent, error) {
	return nil, nil
}

func (r fakeOutboxRepo) MarkPublished(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
