package cart

import (
	"fmt"
	"time"

	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// MaxLineQuantity caps the quantity of a single cart line
const MaxLineQuantity = 99

// Owner identifies who a cart belongs to: a signed-in user or a guest session
type Owner struct {
	UserID       *uuid.UUID
	SessionToken string
}

// UserOwner returns an owner for an authenticated user
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner returns an owner for an anonymous session
func GuestOwner(sessionToken string) Owner {
	return Owner{SessionToken: sessionToken}
}

// IsGuest reports whether the owner is an anonymous session
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

// Validate checks that exactly one identity is set
func (o Owner) Validate() error {
	if o.UserID == nil && o.SessionToken == "" {
		return shared.NewDomainError("UNAUTHORIZED", "A user or guest session is required")
	}
	if o.UserID != nil && o.SessionToken != "" {
		return shared.NewDomainError("INVALID_INPUT", "Cart owner must be either a user or a guest session")
	}
	return nil
}

// Item is a cart line priced at the time it was added
type Item struct {
	shared.BaseEntity
	CartID       uuid.UUID
	ProductID    uuid.UUID
	VariantID    uuid.UUID
	ProductName  string
	VariantLabel string
	SKU          string
	ImageKey     string
	UnitPrice    valueobject.Money
	Quantity     int
}

// LineTotal returns unit price times quantity
func (i Item) LineTotal() valueobject.Money {
	return i.UnitPrice.MultiplyByInt(int64(i.Quantity))
}

// Cart is the shopping cart aggregate root
type Cart struct {
	shared.BaseAggregateRoot
	UserID       *uuid.UUID
	SessionToken string
	Currency     valueobject.Currency
	Items        []Item
	ExpiresAt    *time.Time
}

// NewCart creates an empty cart. Guest carts expire guestTTL after their
// last change.
func NewCart(owner Owner, currency valueobject.Currency, guestTTL time.Duration) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            owner.UserID,
		SessionToken:      owner.SessionToken,
		Currency:          currency,
		Items:             make([]Item, 0),
	}
	c.ExtendExpiry(guestTTL)
	return c, nil
}

// Owner returns the cart owner
func (c *Cart) Owner() Owner {
	return Owner{UserID: c.UserID, SessionToken: c.SessionToken}
}

// IsGuest reports whether this is a guest session cart
func (c *Cart) IsGuest() bool {
	return c.UserID == nil
}

// IsExpired reports whether a guest cart has passed its expiry
func (c *Cart) IsExpired(now time.Time) bool {
	return c.IsGuest() && c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// ExtendExpiry slides a guest cart's expiry to ttl from now. User carts never expire.
func (c *Cart) ExtendExpiry(ttl time.Duration) {
	if !c.IsGuest() || ttl <= 0 {
		return
	}
	exp := time.Now().Add(ttl)
	c.ExpiresAt = &exp
}

// AddItem adds qty units of a product variant. Adding a variant already in the
// cart increases that line and keeps its original price.
func (c *Cart) AddItem(product *catalog.Product, variantID uuid.UUID, qty int) (*Item, error) {
	if qty < 1 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quantity must be at least 1")
	}
	if product == nil {
		return nil, shared.NewNotFoundError("product")
	}
	variant, err := product.Variant(variantID)
	if err != nil {
		return nil, err
	}

	if idx := c.indexOfVariant(variantID); idx >= 0 {
		line := &c.Items[idx]
		newQty := line.Quantity + qty
		if newQty > MaxLineQuantity {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Quantity cannot exceed %d per item", MaxLineQuantity))
		}
		if err := product.EnsureAvailable(variantID, newQty); err != nil {
			return nil, err
		}
		line.Quantity = newQty
		line.UpdatedAt = time.Now()
		c.touch()
		return line, nil
	}

	if qty > MaxLineQuantity {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Quantity cannot exceed %d per item", MaxLineQuantity))
	}
	if err := product.EnsureAvailable(variantID, qty); err != nil {
		return nil, err
	}
	price, err := product.PriceFor(variantID)
	if err != nil {
		return nil, err
	}
	if price.Currency() != c.Currency {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product currency does not match cart currency")
	}

	c.Items = append(c.Items, Item{
		BaseEntity:   shared.NewBaseEntity(),
		CartID:       c.ID,
		ProductID:    product.ID,
		VariantID:    variant.ID,
		ProductName:  product.Name,
		VariantLabel: variant.Label(),
		SKU:          variant.SKU,
		ImageKey:     product.PrimaryImage(),
		UnitPrice:    price,
		Quantity:     qty,
	})
	c.touch()
	return &c.Items[len(c.Items)-1], nil
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, qty int, product *catalog.Product) error {
	if qty < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity cannot be negative")
	}
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return shared.NewNotFoundError("cart item")
	}
	if qty == 0 {
		return c.RemoveItem(itemID)
	}
	if qty > MaxLineQuantity {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Quantity cannot exceed %d per item", MaxLineQuantity))
	}
	if product == nil || product.ID != c.Items[idx].ProductID {
		return shared.NewNotFoundError("product")
	}
	if err := product.EnsureAvailable(c.Items[idx].VariantID, qty); err != nil {
		return err
	}
	c.Items[idx].Quantity = qty
	c.Items[idx].UpdatedAt = time.Now()
	c.touch()
	return nil
}

// RemoveItem deletes a line from the cart
func (c *Cart) RemoveItem(itemID uuid.UUID) error {
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return shared.NewNotFoundError("cart item")
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.touch()
	return nil
}

// Item returns the line with the given id
func (c *Cart) Item(itemID uuid.UUID) (*Item, error) {
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return nil, shared.NewNotFoundError("cart item")
	}
	return &c.Items[idx], nil
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = make([]Item, 0)
	c.touch()
}

// Subtotal is the sum of all line totals
func (c *Cart) Subtotal() valueobject.Money {
	total := valueobject.Zero(c.Currency)
	for _, item := range c.Items {
		// currencies are checked on add
		total, _ = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount returns the total number of units
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Merge folds a guest cart into this cart. Quantities for the same variant are
// summed and capped at MaxLineQuantity and current stock; lines whose product
// is gone or no longer purchasable are dropped. Returns the number of lines
// that could not be merged in full.
func (c *Cart) Merge(guest *Cart, products map[uuid.UUID]*catalog.Product) int {
	skipped := 0
	for _, gi := range guest.Items {
		product, ok := products[gi.ProductID]
		if !ok || !product.IsPurchasable() {
			skipped++
			continue
		}
		variant, err := product.Variant(gi.VariantID)
		if err != nil {
			skipped++
			continue
		}

		existing := 0
		idx := c.indexOfVariant(gi.VariantID)
		if idx >= 0 {
			existing = c.Items[idx].Quantity
		}
		want := existing + gi.Quantity
		capped := min(want, MaxLineQuantity, variant.Stock)
		if capped < want {
			skipped++
		}
		if capped <= existing {
			continue
		}

		if idx >= 0 {
			c.Items[idx].Quantity = capped
			c.Items[idx].UpdatedAt = time.Now()
			continue
		}
		item := gi
		item.BaseEntity = shared.NewBaseEntity()
		item.CartID = c.ID
		item.Quantity = capped
		c.Items = append(c.Items, item)
	}
	c.touch()
	return skipped
}

func (c *Cart) indexOfItem(itemID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfVariant(variantID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}
