package handler

import (
	"context"

	checkoutapp "github.com/fruitstand/backend/internal/application/checkout"
	marketingapp "github.com/fruitstand/backend/internal/application/marketing"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NewsletterService is the newsletter surface the handler needs
type NewsletterService interface {
	Subscribe(ctx context.Context, req marketingapp.SubscribeRequest) (*marketingapp.SubscriptionResponse, error)
	Unsubscribe(ctx context.Context, req marketingapp.UnsubscribeRequest) (*marketingapp.SubscriptionResponse, error)
	List(ctx context.Context, q marketingapp.ListSubscribersQuery) (shared.Paginated[marketingapp.SubscriberResponse], error)
}

// CouponService is the coupon administration surface the handler needs
type CouponService interface {
	Create(ctx context.Context, req checkoutapp.CreateCouponRequest) (*checkoutapp.CouponResponse, error)
	List(ctx context.Context, q checkoutapp.ListCouponsQuery) (shared.Paginated[checkoutapp.CouponResponse], error)
	Deactivate(ctx context.Context, id uuid.UUID) (*checkoutapp.CouponResponse, error)
}

// NewsletterHandler handles newsletter sign-up and the subscriber list
type NewsletterHandler struct {
	BaseHandler
	newsletter NewsletterService
}

// NewNewsletterHandler creates a new NewsletterHandler
func NewNewsletterHandler(newsletter NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{newsletter: newsletter}
}

// Subscribe handles POST /newsletter/subscribe. Repeating it is harmless.
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	var req marketingapp.SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.newsletter.Subscribe(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Unsubscribe handles POST /newsletter/unsubscribe
func (h *NewsletterHandler) Unsubscribe(c *gin.Context) {
	var req marketingapp.UnsubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.newsletter.Unsubscribe(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// ListSubscribers handles GET /admin/subscribers
func (h *NewsletterHandler) ListSubscribers(c *gin.Context) {
	var q marketingapp.ListSubscribersQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.newsletter.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// CouponHandler manages discount codes
type CouponHandler struct {
	BaseHandler
	coupons CouponService
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons CouponService) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

// List handles GET /admin/coupons
func (h *CouponHandler) List(c *gin.Context) {
	var q checkoutapp.ListCouponsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.coupons.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// Create handles POST /admin/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req checkoutapp.CreateCouponRequest
	if !bindJSON(c, &req) {
		return
	}
	coupon, err := h.coupons.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, coupon)
}

// Deactivate handles POST /admin/coupons/:id/deactivate
func (h *CouponHandler) Deactivate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	coupon, err := h.coupons.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, coupon)
}
