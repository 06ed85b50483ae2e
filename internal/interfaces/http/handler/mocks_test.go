package handler

import (
	"context"
	"io"

	cartapp "github.com/fruitstand/backend/internal/application/cart"
	catalogapp "github.com/fruitstand/backend/internal/application/catalog"
	checkoutapp "github.com/fruitstand/backend/internal/application/checkout"
	identityapp "github.com/fruitstand/backend/internal/application/identity"
	marketingapp "github.com/fruitstand/backend/internal/application/marketing"
	orderapp "github.com/fruitstand/backend/internal/application/order"
	placesapp "github.com/fruitstand/backend/internal/application/places"
	supportapp "github.com/fruitstand/backend/internal/application/support"
	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// result returns the typed first value of a mock call, or the zero value
func result[T any](args mock.Arguments) T {
	var zero T
	if v, ok := args.Get(0).(T); ok {
		return v
	}
	return zero
}

// MockProductService implements ProductService for testing
type MockProductService struct{ mock.Mock }

func (m *MockProductService) List(ctx context.Context, q catalogapp.ListProductsQuery) (shared.Paginated[catalogapp.ProductListResponse], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[catalogapp.ProductListResponse]](args), args.Error(1)
}

func (m *MockProductService) AdminList(ctx context.Context, q catalogapp.ListProductsQuery) (shared.Paginated[catalogapp.ProductListResponse], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[catalogapp.ProductListResponse]](args), args.Error(1)
}

func (m *MockProductService) GetBySlug(ctx context.Context, slug string) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, slug)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, req)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) Publish(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) Archive(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) AddVariant(ctx context.Context, id uuid.UUID, req catalogapp.VariantRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) SetStock(ctx context.Context, id, variantID uuid.UUID, req catalogapp.SetStockRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, variantID, req)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) CreateImageUploadURL(ctx context.Context, id uuid.UUID, req catalogapp.ImageUploadRequest) (*catalogapp.ImageUploadResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*catalogapp.ImageUploadResponse](args), args.Error(1)
}

func (m *MockProductService) AttachImage(ctx context.Context, id uuid.UUID, req catalogapp.AttachImageRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) RemoveImage(ctx context.Context, id uuid.UUID, req catalogapp.RemoveImageRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*catalogapp.ProductResponse](args), args.Error(1)
}

func (m *MockProductService) ImportProducts(ctx context.Context, src io.Reader, req catalogapp.ImportRequest) (*catalogapp.ImportResult, error) {
	body, _ := io.ReadAll(src)
	args := m.Called(ctx, string(body), req)
	return result[*catalogapp.ImportResult](args), args.Error(1)
}

// MockCartService implements CartService for testing
type MockCartService struct{ mock.Mock }

func (m *MockCartService) Get(ctx context.Context, owner cart.Owner) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, owner)
	return result[*cartapp.CartResponse](args), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, owner cart.Owner, req cartapp.AddItemRequest) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, owner, req)
	return result[*cartapp.CartResponse](args), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, owner, itemID, req)
	return result[*cartapp.CartResponse](args), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, owner, itemID)
	return result[*cartapp.CartResponse](args), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, owner cart.Owner) (*cartapp.CartResponse, error) {
	args := m.Called(ctx, owner)
	return result[*cartapp.CartResponse](args), args.Error(1)
}

// MockCheckoutService implements CheckoutService for testing
type MockCheckoutService struct{ mock.Mock }

func (m *MockCheckoutService) Quote(ctx context.Context, owner cart.Owner, req checkoutapp.QuoteRequest) (*checkoutapp.QuoteResponse, error) {
	args := m.Called(ctx, owner, req)
	return result[*checkoutapp.QuoteResponse](args), args.Error(1)
}

func (m *MockCheckoutService) CreatePaymentIntent(ctx context.Context, owner cart.Owner, req checkoutapp.PaymentIntentRequest) (*checkoutapp.PaymentIntentResponse, error) {
	args := m.Called(ctx, owner, req)
	return result[*checkoutapp.PaymentIntentResponse](args), args.Error(1)
}

func (m *MockCheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*checkoutapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	return result[*checkoutapp.WebhookResult](args), args.Error(1)
}

// MockOrderService implements OrderService for testing
type MockOrderService struct{ mock.Mock }

func (m *MockOrderService) ListMine(ctx context.Context, userID uuid.UUID, q orderapp.ListOrdersQuery) (shared.Paginated[orderapp.OrderSummary], error) {
	args := m.Called(ctx, userID, q)
	return result[shared.Paginated[orderapp.OrderSummary]](args), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID, sessionToken string) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id, userID, sessionToken)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) Lookup(ctx context.Context, q orderapp.LookupQuery) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, q)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) AdminList(ctx context.Context, q orderapp.AdminListOrdersQuery) (shared.Paginated[orderapp.OrderSummary], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[orderapp.OrderSummary]](args), args.Error(1)
}

func (m *MockOrderService) AdminGet(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) MarkProcessing(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) Ship(ctx context.Context, id uuid.UUID, req orderapp.ShipRequest) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, id uuid.UUID, req orderapp.CancelRequest) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id, req)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) Refund(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id)
	return result[*orderapp.OrderResponse](args), args.Error(1)
}

func (m *MockOrderService) PackingSlipPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, id)
	return result[[]byte](args), args.String(1), args.Error(2)
}

// MockTicketService implements TicketService for testing
type MockTicketService struct{ mock.Mock }

func (m *MockTicketService) Open(ctx context.Context, userID uuid.UUID, email string, req supportapp.OpenTicketRequest) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, userID, email, req)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) ListMine(ctx context.Context, userID uuid.UUID, q supportapp.ListTicketsQuery) (shared.Paginated[supportapp.TicketSummary], error) {
	args := m.Called(ctx, userID, q)
	return result[shared.Paginated[supportapp.TicketSummary]](args), args.Error(1)
}

func (m *MockTicketService) AdminList(ctx context.Context, q supportapp.ListTicketsQuery) (shared.Paginated[supportapp.TicketSummary], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[supportapp.TicketSummary]](args), args.Error(1)
}

func (m *MockTicketService) Get(ctx context.Context, id uuid.UUID, viewer support.Author) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, viewer)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) PostMessage(ctx context.Context, id uuid.UUID, author support.Author, req supportapp.PostMessageRequest) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, author, req)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) CreateAttachmentUploadURL(ctx context.Context, id uuid.UUID, viewer support.Author, req supportapp.AttachmentUploadRequest) (*supportapp.AttachmentUploadResponse, error) {
	args := m.Called(ctx, id, viewer, req)
	return result[*supportapp.AttachmentUploadResponse](args), args.Error(1)
}

func (m *MockTicketService) Close(ctx context.Context, id uuid.UUID, by support.Author) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, by)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) Resolve(ctx context.Context, id uuid.UUID, by support.Author) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, by)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) Reopen(ctx context.Context, id uuid.UUID, by support.Author) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, by)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) Assign(ctx context.Context, id uuid.UUID, by support.Author, req supportapp.AssignRequest) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, by, req)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

func (m *MockTicketService) SetPriority(ctx context.Context, id uuid.UUID, by support.Author, req supportapp.PriorityRequest) (*supportapp.TicketResponse, error) {
	args := m.Called(ctx, id, by, req)
	return result[*supportapp.TicketResponse](args), args.Error(1)
}

// MockAuthService implements AuthService for testing
type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Register(ctx context.Context, req identityapp.RegisterRequest) (*identityapp.AuthResponse, error) {
	args := m.Called(ctx, req)
	return result[*identityapp.AuthResponse](args), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req identityapp.LoginRequest) (*identityapp.AuthResponse, error) {
	args := m.Called(ctx, req)
	return result[*identityapp.AuthResponse](args), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, req identityapp.RefreshRequest) (*identityapp.AuthResponse, error) {
	args := m.Called(ctx, req)
	return result[*identityapp.AuthResponse](args), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

// MockUserService implements UserService for testing
type MockUserService struct{ mock.Mock }

func (m *MockUserService) Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error) {
	args := m.Called(ctx, userID)
	return result[*identityapp.UserResponse](args), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req identityapp.UpdateProfileRequest) (*identityapp.UserResponse, error) {
	args := m.Called(ctx, userID, req)
	return result[*identityapp.UserResponse](args), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID uuid.UUID, req identityapp.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func (m *MockUserService) List(ctx context.Context, q identityapp.ListUsersQuery) (shared.Paginated[identityapp.UserResponse], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[identityapp.UserResponse]](args), args.Error(1)
}

func (m *MockUserService) SetRole(ctx context.Context, actorID, userID uuid.UUID, req identityapp.SetRoleRequest) (*identityapp.UserResponse, error) {
	args := m.Called(ctx, actorID, userID, req)
	return result[*identityapp.UserResponse](args), args.Error(1)
}

func (m *MockUserService) Disable(ctx context.Context, actorID, userID uuid.UUID) (*identityapp.UserResponse, error) {
	args := m.Called(ctx, actorID, userID)
	return result[*identityapp.UserResponse](args), args.Error(1)
}

func (m *MockUserService) Enable(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error) {
	args := m.Called(ctx, userID)
	return result[*identityapp.UserResponse](args), args.Error(1)
}

// MockNewsletterService implements NewsletterService for testing
type MockNewsletterService struct{ mock.Mock }

func (m *MockNewsletterService) Subscribe(ctx context.Context, req marketingapp.SubscribeRequest) (*marketingapp.SubscriptionResponse, error) {
	args := m.Called(ctx, req)
	return result[*marketingapp.SubscriptionResponse](args), args.Error(1)
}

func (m *MockNewsletterService) Unsubscribe(ctx context.Context, req marketingapp.UnsubscribeRequest) (*marketingapp.SubscriptionResponse, error) {
	args := m.Called(ctx, req)
	return result[*marketingapp.SubscriptionResponse](args), args.Error(1)
}

func (m *MockNewsletterService) List(ctx context.Context, q marketingapp.ListSubscribersQuery) (shared.Paginated[marketingapp.SubscriberResponse], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[marketingapp.SubscriberResponse]](args), args.Error(1)
}

// MockCouponService implements CouponService for testing
type MockCouponService struct{ mock.Mock }

func (m *MockCouponService) Create(ctx context.Context, req checkoutapp.CreateCouponRequest) (*checkoutapp.CouponResponse, error) {
	args := m.Called(ctx, req)
	return result[*checkoutapp.CouponResponse](args), args.Error(1)
}

func (m *MockCouponService) List(ctx context.Context, q checkoutapp.ListCouponsQuery) (shared.Paginated[checkoutapp.CouponResponse], error) {
	args := m.Called(ctx, q)
	return result[shared.Paginated[checkoutapp.CouponResponse]](args), args.Error(1)
}

func (m *MockCouponService) Deactivate(ctx context.Context, id uuid.UUID) (*checkoutapp.CouponResponse, error) {
	args := m.Called(ctx, id)
	return result[*checkoutapp.CouponResponse](args), args.Error(1)
}

// MockPlacesService implements PlacesService for testing
type MockPlacesService struct{ mock.Mock }

func (m *MockPlacesService) Autocomplete(ctx context.Context, input, sessionToken, country string) ([]placesapp.Prediction, error) {
	args := m.Called(ctx, input, sessionToken, country)
	return result[[]placesapp.Prediction](args), args.Error(1)
}

func (m *MockPlacesService) Details(ctx context.Context, placeID, sessionToken string) (*valueobject.AddressDTO, error) {
	args := m.Called(ctx, placeID, sessionToken)
	return result[*valueobject.AddressDTO](args), args.Error(1)
}

var (
	_ ProductService    = (*MockProductService)(nil)
	_ CartService       = (*MockCartService)(nil)
	_ CheckoutService   = (*MockCheckoutService)(nil)
	_ OrderService      = (*MockOrderService)(nil)
	_ TicketService     = (*MockTicketService)(nil)
	_ AuthService       = (*MockAuthService)(nil)
	_ UserService       = (*MockUserService)(nil)
	_ NewsletterService = (*MockNewsletterService)(nil)
	_ CouponService     = (*MockCouponService)(nil)
	_ PlacesService     = (*MockPlacesService)(nil)
)
