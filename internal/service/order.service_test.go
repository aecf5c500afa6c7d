package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"storefront/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderSvc(t *testing.T) (OrderService, *store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := newStore()
	svc := NewOrderService(db, fakeOrderRepo{s}, fakeCartRepo{s}, fakeProductRepo{s}, fakeOutboxRepo{s}, discardLogger())
	return svc, s, mock
}

func TestCreateOrderFromCart_TotalsWithIntegerCents(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	userID, vendorID := uuid.New(), uuid.New()
	a := s.addProduct(vendorID, "Desk Lamp", "10.00", 5)
	b := s.addProduct(vendorID, "Bulb", "3.33", 10)
	s.addCartLine(userID, a.ID, 2)
	s.addCartLine(userID, b.ID, 3)

	mock.ExpectBegin()
	mock.ExpectCommit()

	order, err := svc.CreateOrderFromCart(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "29.99", order.Total.String())
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, userID, order.UserID)

	require.Len(t, s.lines, 2)
	for _, l := range s.lines {
		assert.Equal(t, order.ID, l.OrderID)
	}
	assert.Equal(t, "10.00", s.lines[0].Price.String())
	assert.Equal(t, "3.33", s.lines[1].Price.String())

	assert.Empty(t, s.cart[userID])
	assert.Equal(t, 1, s.clearCalls)
	assert.Equal(t, []string{"lock-owner", "lock-cart"}, s.calls)

	require.Len(t, s.events, 1)
	assert.Equal(t, domain.EventOrderCreated, s.events[0].EventType)
	assert.Equal(t, order.ID, s.events[0].AggregateID)

	// product price changes after checkout do not touch the snapshot
	a.Price = domain.MustMoney("99.00")
	s.products[a.ID] = a
	assert.Equal(t, "10.00", s.lines[0].Price.String())
	// stock is left alone
	assert.Equal(t, 5, s.products[a.ID].Stock)
}

func TestCreateOrderFromCart_RoundsFractionalPriceHalfUp(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	userID := uuid.New()
	p := s.addProduct(uuid.New(), "Odd", "2.675", 1)
	s.addCartLine(userID, p.ID, 2)

	mock.ExpectBegin()
	mock.ExpectCommit()

	order, err := svc.CreateOrderFromCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "5.36", order.Total.String())
	assert.Equal(t, "2.68", s.lines[0].Price.String())
}

func TestCreateOrderFromCart_EmptyCart(t *testing.T) {
	svc, s, mock := newOrderSvc(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CreateOrderFromCart(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrEmptyCart)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, s.orders)
	assert.Empty(t, s.events)
}

func TestCreateOrderFromCart_MissingProductLeavesCartIntact(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	userID := uuid.New()
	p := s.addProduct(uuid.New(), "Kept", "1.00", 3)
	missing := uuid.New()
	s.addCartLine(userID, p.ID, 1)
	s.addCartLine(userID, missing, 4)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CreateOrderFromCart(context.Background(), userID)

	var notFound *domain.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missing, notFound.ProductID)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Empty(t, s.orders)
	assert.Empty(t, s.lines)
	require.Len(t, s.cart[userID], 2)
	assert.Equal(t, 4, s.cart[userID][1].Quantity)
	assert.Zero(t, s.clearCalls)
}

func TestCreateOrderFromCart_InsertFailureIsCreationFailed(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	userID := uuid.New()
	p := s.addProduct(uuid.New(), "Thing", "1.00", 3)
	s.addCartLine(userID, p.ID, 1)
	s.createOrderErr = errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CreateOrderFromCart(context.Background(), userID)
	require.ErrorIs(t, err, domain.ErrOrderCreationFailed)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, s.cart[userID], 1)
}

func TestCreateOrderFromCart_LineInsertFailureRollsBack(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	userID := uuid.New()
	p := s.addProduct(uuid.New(), "Thing", "1.00", 3)
	s.addCartLine(userID, p.ID, 1)
	s.createLinesErr = errors.New("fk violation")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CreateOrderFromCart(context.Background(), userID)
	require.ErrorIs(t, err, domain.ErrOrderCreationFailed)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, s.clearCalls)
}

func TestCreateOrderFromCart_BeginFailure(t *testing.T) {
	svc, _, mock := newOrderSvc(t)
	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	_, err := svc.CreateOrderFromCart(context.Background(), uuid.New())
	require.ErrorIs(t, err, sql.ErrConnDone)
}

// O1 belongs to U1; O2 belongs to U2 and contains a product of vendor V1.
func seedVisibility(s *store) (u1, u2, v1 uuid.UUID, o1, o2 domain.Order) {
	u1, u2, v1 = uuid.New(), uuid.New(), uuid.New()
	other := s.addProduct(uuid.New(), "Other", "5.00", 1)
	mine := s.addProduct(v1, "Vendor Item", "7.00", 1)
	o1 = s.addOrder(u1, "5.00", domain.OrderLine{ProductID: other.ID, Quantity: 1, Price: other.Price})
	o2 = s.addOrder(u2, "7.00", domain.OrderLine{ProductID: mine.ID, Quantity: 1, Price: mine.Price})
	return
}

func orderIDs(orders []domain.OrderWithLines) []uuid.UUID {
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

func TestGetOrdersByRole_Visibility(t *testing.T) {
	svc, s, _ := newOrderSvc(t)
	u1, _, v1, o1, o2 := seedVisibility(s)
	ctx := context.Background()

	got, err := svc.GetOrdersByRole(ctx, u1, domain.RoleCustomer, "")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{o1.ID}, orderIDs(got))
	require.Len(t, got[0].Items, 1)

	got, err = svc.GetOrdersByRole(ctx, v1, domain.RoleVendor, "")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{o2.ID}, orderIDs(got))

	got, err = svc.GetOrdersByRole(ctx, uuid.New(), domain.RoleAdmin, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{o1.ID, o2.ID}, orderIDs(got))

	_, err = svc.GetOrdersByRole(ctx, u1, domain.Role("guest"), "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetOrdersByRole_VendorWithoutSalesSeesNothing(t *testing.T) {
	svc, s, _ := newOrderSvc(t)
	seedVisibility(s)

	got, err := svc.GetOrdersByRole(context.Background(), uuid.New(), domain.RoleVendor, domain.SortTotalDesc)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetOrdersByRole_PassesSortAndFillsEmptyLines(t *testing.T) {
	svc, s, _ := newOrderSvc(t)
	userID := uuid.New()
	s.addOrder(userID, "1.00")

	got, err := svc.GetOrdersByRole(context.Background(), userID, domain.RoleCustomer, domain.SortTotalDesc)
	require.NoError(t, err)
	assert.Equal(t, domain.SortTotalDesc, s.lastSort)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].Items)
	assert.Empty(t, got[0].Items)
}

func TestGetOrderByID_OwnershipScoped(t *testing.T) {
	svc, s, _ := newOrderSvc(t)
	u1, u2, _, o1, _ := seedVisibility(s)
	ctx := context.Background()

	got, err := svc.GetOrderByID(ctx, o1.ID, u1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Items, 1)

	got, err = svc.GetOrderByID(ctx, o1.ID, u2)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.GetOrderByID(ctx, uuid.New(), u1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetOrderForRole(t *testing.T) {
	svc, s, _ := newOrderSvc(t)
	u1, u2, v1, o1, o2 := seedVisibility(s)
	ctx := context.Background()

	cases := []struct {
		name    string
		orderID uuid.UUID
		caller  domain.Principal
		wantErr error
	}{
		{"customer owns", o1.ID, domain.Principal{ID: u1, Role: domain.RoleCustomer}, nil},
		{"customer foreign", o1.ID, domain.Principal{ID: u2, Role: domain.RoleCustomer}, domain.ErrForbidden},
		{"vendor sells item without owning order", o2.ID, domain.Principal{ID: v1, Role: domain.RoleVendor}, nil},
		{"vendor unrelated", o1.ID, domain.Principal{ID: v1, Role: domain.RoleVendor}, domain.ErrForbidden},
		{"admin", o1.ID, domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}, nil},
		{"unknown role", o1.ID, domain.Principal{ID: u1, Role: "guest"}, domain.ErrForbidden},
		{"missing order", uuid.New(), domain.Principal{ID: u1, Role: domain.RoleAdmin}, domain.ErrOrderNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.GetOrderForRole(ctx, tc.orderID, tc.caller)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.orderID, got.ID)
			assert.NotEmpty(t, got.Items)
		})
	}
}

func TestUpdateOrderStatus_AnyMemberAnyTime(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	o := s.addOrder(uuid.New(), "1.00")
	ctx := context.Background()

	for _, st := range []domain.OrderStatus{domain.OrderDelivered, domain.OrderDelivered, domain.OrderPending, domain.OrderCancelled, domain.OrderProcessing} {
		mock.ExpectBegin()
		mock.ExpectCommit()

		got, err := svc.UpdateOrderStatus(ctx, o.ID, st)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, s.events, 5)
	assert.Equal(t, domain.EventOrderStatusChanged, s.events[0].EventType)
}

func TestUpdateOrderStatus_InvalidStatusNeverTouchesDB(t *testing.T) {
	svc, s, mock := newOrderSvc(t)
	o := s.addOrder(uuid.New(), "1.00")

	for i := 0; i < 2; i++ {
		_, err := svc.UpdateOrderStatus(context.Background(), o.ID, "archived")
		var invalid *domain.InvalidStatusError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, err.Error(), "pending, processing, shipped, delivered, cancelled")
	}
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, domain.OrderPending, s.orders[0].Status)
}

func TestUpdateOrderStatus_MissingOrder(t *testing.T) {
	svc, s, mock := newOrderSvc(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.UpdateOrderStatus(context.Background(), uuid.New(), domain.OrderShipped)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, s.events)
}
