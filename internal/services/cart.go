package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/logging"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/observability"
)

type cartStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID uuid.UUID, revision int64) error
}

// CartService manages the per-user cart. All totals are recomputed from the
// live catalog on every mutation; the stored total is only a display cache.
type CartService struct {
	cartStore    cartStore
	productStore orderProductStore
	logger       *slog.Logger
}

func NewCartService(cartStore cartStore, productStore orderProductStore, logger *slog.Logger) *CartService {
	return &CartService{
		cartStore:    cartStore,
		productStore: productStore,
		logger:       logger,
	}
}

func (s *CartService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Get returns the user's cart, creating an empty one on first access.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	cart, err := s.cartStore.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product (at a chosen pack weight) into the
// cart. Adding a line that already exists bumps its quantity instead of
// appending a duplicate.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int, weight float64) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id", ErrMissingField)
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productStore.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.Availability {
		return nil, ErrProductUnavailable
	}
	if weight <= 0 {
		weight = product.Weight
	}

	cart, err := s.cartStore.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if i := cart.FindItem(productID, weight); i >= 0 {
		cart.Items[i].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Weight:    weight,
			Image:     product.Image,
		})
	}

	if err := s.saveWithTotal(ctx, cart); err != nil {
		return nil, err
	}
	observability.MeterFromContext(ctx).Count("cart.item.added", 1)
	return cart, nil
}

// UpdateItem sets the quantity of an existing line. Quantity zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, productID string, quantity int, weight float64) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.cartStore.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	i := cart.FindItem(productID, weight)
	if i < 0 {
		return nil, ErrItemNotInCart
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Quantity = quantity
	}

	if err := s.saveWithTotal(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID string, weight float64) (*models.Cart, error) {
	return s.UpdateItem(ctx, userID, productID, 0, weight)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthenticated
	}

	cart, err := s.cartStore.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to load cart: %w", err)
	}

	if err := s.cartStore.Clear(ctx, userID, cart.Revision); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// saveWithTotal recomputes the cached cart total from catalog prices and
// persists the cart under its revision guard. Lines whose product vanished
// since they were added contribute nothing to the total; placement skips them
// the same way.
func (s *CartService) saveWithTotal(ctx context.Context, cart *models.Cart) error {
	logger := s.loggerFromContext(ctx)

	total := 0.0
	for _, line := range cart.Items {
		product, err := s.productStore.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Warn("cart line references deleted product", "product_id", line.ProductID, "user_id", cart.UserID)
				continue
			}
			return fmt.Errorf("failed to price cart line: %w", err)
		}
		total += product.Price * float64(line.Quantity) * line.Weight
	}
	cart.TotalAmount = total

	if err := s.cartStore.Save(ctx, cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
