package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	checkoutapp "github.com/fruitstand/backend/internal/application/checkout"
	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupCheckoutRouter(svc *MockCheckoutService) http.Handler {
	router := setupTestRouter()
	h := NewCheckoutHandler(svc)
	g := router.Group("/checkout", guestSession())
	g.POST("/quote", h.Quote)
	g.POST("/payment-intent", h.CreatePaymentIntent)
	router.POST("/webhooks/stripe", middleware.BodyLimit(middleware.WebhookBodyLimit), h.StripeWebhook)
	return router
}

func TestCheckoutHandler_Quote(t *testing.T) {
	svc := new(MockCheckoutService)
	svc.On("Quote", mock.Anything, cart.GuestOwner(testSessionToken), checkoutapp.QuoteRequest{CouponCode: "SUMMER10"}).
		Return(&checkoutapp.QuoteResponse{AmountCents: 2599}, nil)

	w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/checkout/quote", map[string]any{"coupon_code": "SUMMER10"},
		middleware.SessionHeader, testSessionToken)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount_cents":2599`)
	svc.AssertExpectations(t)
}

func TestCheckoutHandler_Quote_EmptyBody(t *testing.T) {
	svc := new(MockCheckoutService)
	svc.On("Quote", mock.Anything, cart.GuestOwner(testSessionToken), checkoutapp.QuoteRequest{}).
		Return(&checkoutapp.QuoteResponse{}, nil)

	w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/checkout/quote", nil, middleware.SessionHeader, testSessionToken)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCheckoutHandler_PaymentIntent(t *testing.T) {
	svc := new(MockCheckoutService)
	orderID := uuid.New()
	svc.On("CreatePaymentIntent", mock.Anything, cart.GuestOwner(testSessionToken), mock.MatchedBy(func(req checkoutapp.PaymentIntentRequest) bool {
		return req.Email == "pat@example.com" && req.ShippingAddress.PostalCode == "97201"
	})).Return(&checkoutapp.PaymentIntentResponse{OrderID: orderID, ClientSecret: "pi_123_secret_456"}, nil)

	w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/checkout/payment-intent", map[string]any{
		"email": "pat@example.com",
		"shipping_address": map[string]any{
			"name":        "Pat Lee",
			"line1":       "1 Orchard Way",
			"city":        "Portland",
			"state":       "OR",
			"postal_code": "97201",
			"country":     "US",
		},
	}, middleware.SessionHeader, testSessionToken)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "pi_123_secret_456")
	svc.AssertExpectations(t)
}

func TestCheckoutHandler_PaymentIntent_EmptyCart(t *testing.T) {
	svc := new(MockCheckoutService)
	svc.On("CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("INVALID_STATE", "cart is empty"))

	w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/checkout/payment-intent", map[string]any{
		"email":            "pat@example.com",
		"shipping_address": map[string]any{"line1": "1 Orchard Way"},
	}, middleware.SessionHeader, testSessionToken)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckoutHandler_Webhook(t *testing.T) {
	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`

	t.Run("missing signature", func(t *testing.T) {
		svc := new(MockCheckoutService)
		w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/webhooks/stripe", payload)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature", func(t *testing.T) {
		svc := new(MockCheckoutService)
		svc.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=bad").Return(nil, checkout.ErrInvalidSignature)

		w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/webhooks/stripe", payload, StripeSignatureHeader, "t=1,v1=bad")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errCode(t, w))
	})

	t.Run("processed", func(t *testing.T) {
		svc := new(MockCheckoutService)
		svc.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=good").
			Return(&checkoutapp.WebhookResult{EventID: "evt_1", Outcome: checkoutapp.OutcomePaid}, nil)

		w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/webhooks/stripe", payload, StripeSignatureHeader, "t=1,v1=good")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"outcome":"paid"`)
	})

	t.Run("processing failure asks for retry", func(t *testing.T) {
		svc := new(MockCheckoutService)
		svc.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/webhooks/stripe", payload, StripeSignatureHeader, "t=1,v1=good")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("oversized", func(t *testing.T) {
		svc := new(MockCheckoutService)
		big := `{"pad":"` + strings.Repeat("x", int(middleware.WebhookBodyLimit)) + `"}`

		w := doJSON(setupCheckoutRouter(svc), http.MethodPost, "/webhooks/stripe", big, StripeSignatureHeader, "t=1,v1=good")

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		svc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})
}
