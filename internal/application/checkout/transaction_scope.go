package checkout

import (
	"context"

	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/order"
)

// TransactionScope provides transactional access to the repositories touched
// when an order is finalized. All repository calls made inside fn commit or
// roll back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories share one underlying database transaction
type TransactionalRepositories interface {
	Orders() order.Repository
	Products() catalog.ProductRepository
	Coupons() checkout.CouponRepository
	Carts() cart.Repository
}

// NoOpTransactionScope runs fn against plain repositories without a
// transaction. Useful in tests.
type NoOpTransactionScope struct {
	orders   order.Repository
	products catalog.ProductRepository
	coupons  checkout.CouponRepository
	carts    cart.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orders order.Repository,
	products catalog.ProductRepository,
	coupons checkout.CouponRepository,
	carts cart.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{orders: orders, products: products, coupons: coupons, carts: carts}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Orders() order.Repository            { return s.orders }
func (s *NoOpTransactionScope) Products() catalog.ProductRepository { return s.products }
func (s *NoOpTransactionScope) Coupons() checkout.CouponRepository  { return s.coupons }
func (s *NoOpTransactionScope) Carts() cart.Repository              { return s.carts }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
