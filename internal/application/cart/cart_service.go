// Package cart implements the shopping cart use cases for signed-in users and
// guest sessions.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultGuestCartTTL is how long an untouched guest cart survives
const DefaultGuestCartTTL = 7 * 24 * time.Hour

// CartService handles cart operations
type CartService struct {
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	storage     shared.ObjectStorageService
	currency    valueobject.Currency
	guestTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewCartService creates a new CartService
func NewCartService(
	cartRepo cart.Repository,
	productRepo catalog.ProductRepository,
	storage shared.ObjectStorageService,
	currency valueobject.Currency,
	guestTTL time.Duration,
	logger *zap.Logger,
) *CartService {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if guestTTL <= 0 {
		guestTTL = DefaultGuestCartTTL
	}
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		storage:     storage,
		currency:    currency,
		guestTTL:    guestTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Get returns the owner's cart, or an empty cart when none exists yet
func (s *CartService) Get(ctx context.Context, owner cart.Owner) (*CartResponse, error) {
	c, err := s.find(ctx, owner)
	if errors.Is(err, shared.ErrNotFound) {
		return emptyCartResponse(s.currency), nil
	}
	if err != nil {
		return nil, err
	}
	return toCartResponse(c, s.storage), nil
}

// AddItem adds a product variant to the cart, creating the cart on first use
func (s *CartService) AddItem(ctx context.Context, owner cart.Owner, req AddItemRequest) (*CartResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("product")
		}
		return nil, err
	}
	if _, err := c.AddItem(product, req.VariantID, req.Quantity); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// UpdateItem changes a line quantity. Stock is re-checked against the
// current product.
func (s *CartService) UpdateItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	if req.Quantity == nil {
		return nil, shared.NewMissingFieldError("quantity")
	}
	c, err := s.find(ctx, owner)
	if err != nil {
		return nil, notFoundAsItem(err)
	}
	item, err := c.Item(itemID)
	if err != nil {
		return nil, err
	}

	var product *catalog.Product
	if *req.Quantity > 0 {
		product, err = s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewNotFoundError("product")
			}
			return nil, err
		}
	}
	if err := c.UpdateQuantity(itemID, *req.Quantity, product); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// RemoveItem deletes a line
func (s *CartService) RemoveItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID) (*CartResponse, error) {
	c, err := s.find(ctx, owner)
	if err != nil {
		return nil, notFoundAsItem(err)
	}
	if err := c.RemoveItem(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, owner cart.Owner) (*CartResponse, error) {
	c, err := s.find(ctx, owner)
	if errors.Is(err, shared.ErrNotFound) {
		return emptyCartResponse(s.currency), nil
	}
	if err != nil {
		return nil, err
	}
	c.Clear()
	return s.save(ctx, c)
}

// MergeGuestCart folds the guest session's cart into the user's cart and
// deletes the guest cart. A missing or expired guest cart is not an error.
func (s *CartService) MergeGuestCart(ctx context.Context, userID uuid.UUID, sessionToken string) (MergeResult, error) {
	if sessionToken == "" {
		return MergeResult{}, nil
	}
	guest, err := s.cartRepo.FindBySession(ctx, sessionToken)
	if errors.Is(err, shared.ErrNotFound) {
		return MergeResult{}, nil
	}
	if err != nil {
		return MergeResult{}, err
	}
	if guest.IsExpired(s.now()) || guest.IsEmpty() {
		return MergeResult{}, s.cartRepo.Delete(ctx, guest.ID)
	}

	ids := make([]uuid.UUID, 0, len(guest.Items))
	for _, it := range guest.Items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return MergeResult{}, err
	}
	products := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	userCart, err := s.getOrCreate(ctx, cart.UserOwner(userID))
	if err != nil {
		return MergeResult{}, err
	}
	skipped := userCart.Merge(guest, products)
	if err := s.cartRepo.Save(ctx, userCart); err != nil {
		return MergeResult{}, err
	}
	if err := s.cartRepo.Delete(ctx, guest.ID); err != nil {
		return MergeResult{}, err
	}

	s.logger.Info("Guest cart merged",
		zap.String("user_id", userID.String()),
		zap.String("cart_id", userCart.ID.String()),
		zap.Int("skipped", skipped))
	return MergeResult{Merged: true, Skipped: skipped}, nil
}

// PurgeExpired deletes guest carts past their expiry. It has the shape of a
// sweeper job.
func (s *CartService) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.cartRepo.DeleteExpired(ctx, s.now())
	return int(n), err
}

// find loads the owner's cart. Expired guest carts are deleted and reported
// as not found.
func (s *CartService) find(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	var (
		c   *cart.Cart
		err error
	)
	if owner.IsGuest() {
		c, err = s.cartRepo.FindBySession(ctx, owner.SessionToken)
	} else {
		c, err = s.cartRepo.FindByUser(ctx, *owner.UserID)
	}
	if err != nil {
		return nil, err
	}
	if c.IsExpired(s.now()) {
		if err := s.cartRepo.Delete(ctx, c.ID); err != nil {
			s.logger.Warn("Failed to delete expired cart", zap.String("cart_id", c.ID.String()), zap.Error(err))
		}
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s *CartService) getOrCreate(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	c, err := s.find(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return cart.NewCart(owner, s.currency, s.guestTTL)
}

func (s *CartService) save(ctx context.Context, c *cart.Cart) (*CartResponse, error) {
	c.ExtendExpiry(s.guestTTL)
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return toCartResponse(c, s.storage), nil
}

func notFoundAsItem(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewNotFoundError("cart item")
	}
	return err
}
