package service

import (
	"context"
	"database/sql"

	"storefront/internal/domain"
	"storefront/internal/repo"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CartService interface {
	// AddItem merges quantity into the user's line for the product. The
	// merged quantity may not exceed the product's stock.
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)
}

type cartService struct {
	db          *sql.DB
	cartRepo    repo.CartRepo
	productRepo repo.ProductRepo
	logger      logrus.FieldLogger
}

func NewCartService(db *sql.DB, cartRepo repo.CartRepo, productRepo repo.ProductRepo, logger logrus.FieldLogger) CartService {
	return &cartService{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.cartRepo.LockOwner(ctx, tx, userID); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindById(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &domain.ProductNotFoundError{ProductID: productID}
	}

	existing, err := s.cartRepo.FindLine(ctx, tx, userID, productID)
	if err != nil {
		return nil, err
	}
	inCart := 0
	if existing != nil {
		inCart = existing.Quantity
	}
	if inCart+quantity > product.Stock {
		return nil, &domain.InsufficientStockError{
			ProductID: productID,
			Available: product.Stock,
			InCart:    inCart,
			Requested: quantity,
		}
	}

	line, err := s.cartRepo.Upsert(ctx, tx, userID, productID, inCart+quantity)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   line.Quantity,
	}).Debug("cart item added")

	return cartItem(line, product), nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	line, err := s.cartRepo.UpdateQuantity(ctx, nil, userID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.ErrCartItemNotFound
	}

	product, err := s.productRepo.FindById(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &domain.ProductNotFoundError{ProductID: productID}
	}
	return cartItem(line, product), nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.cartRepo.Remove(ctx, nil, userID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.cartRepo.Clear(ctx, nil, userID)
}

func (s *cartService) List(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	return s.cartRepo.ListItems(ctx, userID)
}

func cartItem(line *domain.CartLine, product *domain.Product) *domain.CartItem {
	return &domain.CartItem{
		ID:        line.ID,
		UserID:    line.UserID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Product:   *product,
	}
}
