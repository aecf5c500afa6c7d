package service

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/events"
	"storefront/internal/repo"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type OrderService interface {
	// CreateOrderFromCart turns the user's cart into a pending order and
	// empties the cart, all in one transaction. The order is returned
	// without lines.
	CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	GetOrdersByRole(ctx context.Context, userID uuid.UUID, role domain.Role, sort domain.OrderSort) ([]domain.OrderWithLines, error)
	// GetOrderByID returns nil when the order is missing or not owned by userID.
	GetOrderByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.OrderWithLines, error)
	GetOrderForRole(ctx context.Context, orderID uuid.UUID, caller domain.Principal) (*domain.OrderWithLines, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	cartRepo    repo.CartRepo
	productRepo repo.ProductRepo
	outboxRepo  repo.OutboxRepo
	logger      logrus.FieldLogger
}

func NewOrderService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	cartRepo repo.CartRepo,
	productRepo repo.ProductRepo,
	outboxRepo repo.OutboxRepo,
	logger logrus.FieldLogger,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

func (s *orderService) CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// owner lock keeps concurrent adds out until the cart is cleared
	if err := s.cartRepo.LockOwner(ctx, tx, userID); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.LockByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	productIDs := make([]uuid.UUID, 0, len(cart))
	seen := make(map[uuid.UUID]struct{}, len(cart))
	for _, line := range cart {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var totalCents int64
	lines := make([]domain.OrderLine, 0, len(cart))
	for _, item := range cart {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		line := domain.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     domain.MoneyFromCents(p.Price.Cents()),
		}
		totalCents += line.Subtotal()
		lines = append(lines, line)
	}

	order := &domain.Order{
		UserID: userID,
		Total:  domain.MoneyFromCents(totalCents),
		Status: domain.OrderPending,
	}
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}

	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := s.orderRepo.CreateOrderLines(ctx, tx, lines); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}

	if _, err := s.cartRepo.Clear(ctx, tx, userID); err != nil {
		return nil, err
	}

	ev, err := events.OrderCreatedEvent(order, lines)
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.Total.String(),
		"lines":    len(lines),
	}).Info("order created")

	return order, nil
}

func (s *orderService) GetOrdersByRole(ctx context.Context, userID uuid.UUID, role domain.Role, sort domain.OrderSort) ([]domain.OrderWithLines, error) {
	var filter repo.OrderFilter

	switch role {
	case domain.RoleCustomer:
		filter.UserID = &userID
	case domain.RoleVendor:
		productIDs, err := s.productRepo.ListIDsByVendor(ctx, userID)
		if err != nil {
			return nil, err
		}
		orderIDs, err := s.orderRepo.FindOrderIDsByProducts(ctx, productIDs)
		if err != nil {
			return nil, err
		}
		if len(orderIDs) == 0 {
			return []domain.OrderWithLines{}, nil
		}
		filter.IDs = orderIDs
	case domain.RoleAdmin:
	default:
		return nil, domain.ErrForbidden
	}

	orders, err := s.orderRepo.List(ctx, filter, sort)
	if err != nil {
		return nil, err
	}
	return s.attachLines(ctx, orders)
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.OrderWithLines, error) {
	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, nil
	}
	return s.withLines(ctx, order)
}

// GetOrderForRole loads the order by id alone and then applies the caller's
// role rule. Vendors pass on owning a product in the order; they are never
// held to the customer ownership check.
func (s *orderService) GetOrderForRole(ctx context.Context, orderID uuid.UUID, caller domain.Principal) (*domain.OrderWithLines, error) {
	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	switch caller.Role {
	case domain.RoleCustomer:
		if order.UserID != caller.ID {
			return nil, domain.ErrForbidden
		}
	case domain.RoleVendor:
		ok, err := s.orderRepo.ContainsVendorProduct(ctx, order.ID, caller.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrForbidden
		}
	case domain.RoleAdmin:
	default:
		return nil, domain.ErrForbidden
	}

	return s.withLines(ctx, order)
}

// UpdateOrderStatus accepts any member of the status set regardless of the
// current status. Callers restrict it to admins.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, &domain.InvalidStatusError{Status: status}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, status)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	ev, err := events.OrderStatusChangedEvent(order)
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("order status updated")

	return order, nil
}

func (s *orderService) withLines(ctx context.Context, order *domain.Order) (*domain.OrderWithLines, error) {
	out, err := s.attachLines(ctx, []domain.Order{*order})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// attachLines reads the lines of all orders in one batch and groups them by
// order id. An order without lines gets an empty slice.
func (s *orderService) attachLines(ctx context.Context, orders []domain.Order) ([]domain.OrderWithLines, error) {
	out := make([]domain.OrderWithLines, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	lines, err := s.orderRepo.FindLines(ctx, ids)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uuid.UUID][]domain.OrderLine, len(orders))
	for _, l := range lines {
		grouped[l.OrderID] = append(grouped[l.OrderID], l)
	}
	for _, o := range orders {
		items := grouped[o.ID]
		if items == nil {
			items = []domain.OrderLine{}
		}
		out = append(out, domain.OrderWithLines{Order: o, Items: items})
	}
	return out, nil
}
