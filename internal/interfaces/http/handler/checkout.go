package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	checkoutapp "github.com/fruitstand/backend/internal/application/checkout"
	"github.com/fruitstand/backend/internal/domain/cart"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// CheckoutService is the checkout use-case surface the handler needs
type CheckoutService interface {
	Quote(ctx context.Context, owner cart.Owner, req checkoutapp.QuoteRequest) (*checkoutapp.QuoteResponse, error)
	CreatePaymentIntent(ctx context.Context, owner cart.Owner, req checkoutapp.PaymentIntentRequest) (*checkoutapp.PaymentIntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*checkoutapp.WebhookResult, error)
}

// CheckoutHandler prices carts, starts payments and receives gateway webhooks
type CheckoutHandler struct {
	BaseHandler
	checkout CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Quote handles POST /checkout/quote
func (h *CheckoutHandler) Quote(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	var req checkoutapp.QuoteRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	quote, err := h.checkout.Quote(c.Request.Context(), owner, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// CreatePaymentIntent handles POST /checkout/payment-intent. It places a
// pending order and returns the client secret for the payment form.
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	owner, ok := h.cartOwner(c)
	if !ok {
		return
	}
	var req checkoutapp.PaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}
	intent, err := h.checkout.CreatePaymentIntent(c.Request.Context(), owner, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, intent)
}

// StripeWebhook handles POST /webhooks/stripe. The raw body is needed for
// signature verification. Processing errors answer 500 so Stripe retries.
func (h *CheckoutHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.Error(c, dto.ErrCodeRequestTooLarge, "Payload too large")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		h.Unauthorized(c, "Missing Stripe-Signature header")
		return
	}

	result, err := h.checkout.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
