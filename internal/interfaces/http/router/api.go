package router

import (
	"net/http"

	"github.com/fruitstand/backend/internal/infrastructure/logger"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/fruitstand/backend/internal/interfaces/http/handler"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles everything the storefront API serves
type Handlers struct {
	Products     *handler.ProductHandler
	Carts        *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Orders       *handler.OrderHandler
	Tickets      *handler.TicketHandler
	AdminTickets *handler.TicketHandler
	Auth         *handler.AuthHandler
	Users        *handler.UserAdminHandler
	Newsletter   *handler.NewsletterHandler
	Coupons      *handler.CouponHandler
	Places       *handler.PlacesHandler
	System       *handler.SystemHandler
	Metrics      http.Handler
}

// Guards holds the per-group access middleware. AuthLimit may be nil.
type Guards struct {
	RequireUser  gin.HandlerFunc
	OptionalUser gin.HandlerFunc
	RequireAdmin gin.HandlerFunc
	IssueSession gin.HandlerFunc
	ReadSession  gin.HandlerFunc
	AuthLimit    gin.HandlerFunc
	WebhookBody  gin.HandlerFunc // nil limits webhooks to middleware.WebhookBodyLimit
}

// Routes returns the route groups of the storefront API
func Routes(h Handlers, g Guards) []RouteRegistrar {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)
	if h.Metrics != nil {
		system.GET("/metrics", gin.WrapH(h.Metrics))
	}

	catalog := NewDomainGroup("catalog", "/products")
	catalog.GET("", h.Products.List)
	catalog.GET("/:slug", h.Products.GetBySlug)

	cart := NewDomainGroup("cart", "/cart").Use(g.OptionalUser, g.IssueSession)
	cart.GET("", h.Carts.Get)
	cart.DELETE("", h.Carts.Clear)
	cart.POST("/items", h.Carts.AddItem)
	cart.PATCH("/items/:id", h.Carts.UpdateItem)
	cart.DELETE("/items/:id", h.Carts.RemoveItem)

	checkout := NewDomainGroup("checkout", "/checkout").Use(g.OptionalUser, g.IssueSession)
	checkout.POST("/quote", h.Checkout.Quote)
	checkout.POST("/payment-intent", h.Checkout.CreatePaymentIntent)

	webhookBody := g.WebhookBody
	if webhookBody == nil {
		webhookBody = middleware.BodyLimit(middleware.WebhookBodyLimit)
	}
	webhooks := NewDomainGroup("webhooks", "/webhooks").Use(webhookBody)
	webhooks.POST("/stripe", h.Checkout.StripeWebhook)

	orders := NewDomainGroup("orders", "/orders").Use(g.OptionalUser, g.ReadSession)
	orders.GET("", h.Orders.ListMine)
	orders.GET("/lookup", h.Orders.Lookup)
	orders.GET("/:id", h.Orders.Get)

	newsletter := NewDomainGroup("newsletter", "/newsletter")
	newsletter.POST("/subscribe", h.Newsletter.Subscribe)
	newsletter.POST("/unsubscribe", h.Newsletter.Unsubscribe)

	places := NewDomainGroup("places", "/places")
	places.GET("/autocomplete", h.Places.Autocomplete)
	places.GET("/details/:place_id", h.Places.Details)

	authRoutes := NewDomainGroup("auth", "/auth").Use(g.AuthLimit, g.ReadSession)
	authRoutes.POST("/register", h.Auth.Register)
	authRoutes.POST("/login", h.Auth.Login)
	authRoutes.POST("/refresh", h.Auth.Refresh)
	authRoutes.POST("/logout", g.RequireUser, h.Auth.Logout)

	account := NewDomainGroup("account", "/me").Use(g.RequireUser)
	account.GET("", h.Auth.Me)
	account.PATCH("", h.Auth.UpdateProfile)
	account.POST("/password", h.Auth.ChangePassword)

	tickets := NewDomainGroup("support", "/tickets").Use(g.RequireUser)
	tickets.GET("", h.Tickets.List)
	tickets.POST("", h.Tickets.Open)
	tickets.GET("/:id", h.Tickets.Get)
	tickets.POST("/:id/messages", h.Tickets.PostMessage)
	tickets.POST("/:id/attachments", h.Tickets.AttachmentUploadURL)
	tickets.POST("/:id/close", h.Tickets.Close)

	return []RouteRegistrar{
		system, catalog, cart, checkout, webhooks, orders, newsletter, places,
		authRoutes, account, tickets, adminRoutes(h, g),
	}
}

func adminRoutes(h Handlers, g Guards) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").Use(g.RequireUser, g.RequireAdmin)

	products := admin.Group("products", "/products")
	products.GET("", h.Products.AdminList)
	products.POST("", h.Products.Create)
	products.POST("/import", h.Products.Import)
	products.GET("/:id", h.Products.AdminGet)
	products.PUT("/:id", h.Products.Update)
	products.POST("/:id/publish", h.Products.Publish)
	products.POST("/:id/archive", h.Products.Archive)
	products.POST("/:id/variants", h.Products.AddVariant)
	products.PUT("/:id/variants/:variant_id/stock", h.Products.SetStock)
	products.POST("/:id/images/upload-url", h.Products.ImageUploadURL)
	products.POST("/:id/images", h.Products.AttachImage)
	products.DELETE("/:id/images", h.Products.RemoveImage)

	orders := admin.Group("orders", "/orders")
	orders.GET("", h.Orders.AdminList)
	orders.GET("/:id", h.Orders.AdminGet)
	orders.POST("/:id/process", h.Orders.MarkProcessing)
	orders.POST("/:id/ship", h.Orders.Ship)
	orders.POST("/:id/deliver", h.Orders.MarkDelivered)
	orders.POST("/:id/cancel", h.Orders.Cancel)
	orders.POST("/:id/refund", h.Orders.Refund)
	orders.GET("/:id/packing-slip", h.Orders.PackingSlip)

	tickets := admin.Group("tickets", "/tickets")
	tickets.GET("", h.AdminTickets.List)
	tickets.GET("/:id", h.AdminTickets.Get)
	tickets.POST("/:id/messages", h.AdminTickets.PostMessage)
	tickets.POST("/:id/attachments", h.AdminTickets.AttachmentUploadURL)
	tickets.POST("/:id/assign", h.AdminTickets.Assign)
	tickets.POST("/:id/resolve", h.AdminTickets.Resolve)
	tickets.POST("/:id/close", h.AdminTickets.Close)
	tickets.POST("/:id/reopen", h.AdminTickets.Reopen)
	tickets.PUT("/:id/priority", h.AdminTickets.SetPriority)

	users := admin.Group("users", "/users")
	users.GET("", h.Users.List)
	users.PUT("/:id/role", h.Users.SetRole)
	users.POST("/:id/disable", h.Users.Disable)
	users.POST("/:id/enable", h.Users.Enable)

	coupons := admin.Group("coupons", "/coupons")
	coupons.GET("", h.Coupons.List)
	coupons.POST("", h.Coupons.Create)
	coupons.POST("/:id/deactivate", h.Coupons.Deactivate)

	admin.GET("/subscribers", h.Newsletter.ListSubscribers)
	return admin
}

// EngineConfig holds the engine-wide middleware settings
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	Metrics        middleware.HTTPObserver
	CORS           middleware.CORSConfig
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	TrustedProxies []string
	MaxBodySize    int64
}

// NewEngine builds a gin engine with the global middleware chain:
// recovery, request id, tracing, request log, metrics, CORS, rate limit.
func NewEngine(cfg EngineConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = middleware.DefaultBodyLimit
	}

	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			cfg.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(cfg.Logger),
		middleware.HTTPMetrics(cfg.Metrics),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
	)
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	return engine
}
