package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/fruitstand/backend/internal/application/cart"
	catalogapp "github.com/fruitstand/backend/internal/application/catalog"
	checkoutapp "github.com/fruitstand/backend/internal/application/checkout"
	identityapp "github.com/fruitstand/backend/internal/application/identity"
	marketingapp "github.com/fruitstand/backend/internal/application/marketing"
	"github.com/fruitstand/backend/internal/application/notification"
	orderapp "github.com/fruitstand/backend/internal/application/order"
	placesapp "github.com/fruitstand/backend/internal/application/places"
	supportapp "github.com/fruitstand/backend/internal/application/support"
	"github.com/fruitstand/backend/internal/domain/checkout"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/fruitstand/backend/internal/infrastructure/cache"
	"github.com/fruitstand/backend/internal/infrastructure/config"
	"github.com/fruitstand/backend/internal/infrastructure/event"
	"github.com/fruitstand/backend/internal/infrastructure/logger"
	"github.com/fruitstand/backend/internal/infrastructure/notify"
	"github.com/fruitstand/backend/internal/infrastructure/payment"
	"github.com/fruitstand/backend/internal/infrastructure/persistence"
	"github.com/fruitstand/backend/internal/infrastructure/places"
	"github.com/fruitstand/backend/internal/infrastructure/printing"
	"github.com/fruitstand/backend/internal/infrastructure/scheduler"
	"github.com/fruitstand/backend/internal/infrastructure/storage"
	"github.com/fruitstand/backend/internal/infrastructure/telemetry"
	"github.com/fruitstand/backend/internal/interfaces/http/handler"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/fruitstand/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	base, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = base.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, base); err != nil {
		base.Fatal("Server exited with error", zap.Error(err))
	}
}

// closer runs at shutdown in reverse registration order
type closer struct {
	name string
	fn   func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, base *zap.Logger) (err error) {
	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].fn(shutdownCtx); cerr != nil {
				base.Error("Error during shutdown", zap.String("component", closers[i].name), zap.Error(cerr))
			}
		}
	}()
	onShutdown := func(name string, fn func(context.Context) error) {
		closers = append(closers, closer{name: name, fn: fn})
	}

	// Telemetry
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, base)
	if err != nil {
		return err
	}
	onShutdown("otel logs", logProvider.Shutdown)
	log := logProvider.Bridge(base, zapcore.InfoLevel)

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	onShutdown("otel traces", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	onShutdown("otel metrics", meterProvider.Shutdown)

	metrics := telemetry.NewStoreMetrics()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(ctx, &cfg.Database, gormLog)
	if err != nil {
		return err
	}
	onShutdown("database", func(context.Context) error { return db.Close() })
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      !cfg.App.IsProduction(),
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          "postgresql",
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			return fmt.Errorf("register db tracing: %w", err)
		}
	}
	if meterProvider.IsEnabled() {
		sqlDB, err := db.SQL()
		if err != nil {
			return err
		}
		poolMetrics, err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter("fruitstand/db"), sqlDB)
		if err != nil {
			return fmt.Errorf("register db pool metrics: %w", err)
		}
		onShutdown("db pool metrics", func(context.Context) error { return poolMetrics.Unregister() })
	}

	// Redis, or in-memory stores when it is unavailable outside production
	kv, err := cache.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	onShutdown("redis", func(context.Context) error { return kv.Close() })

	var (
		blacklist   auth.TokenBlacklist
		idempotency shared.IdempotencyStore
	)
	if kv.Available() {
		blacklist = auth.NewRedisTokenBlacklist(kv.Client)
		idempotency = cache.NewRedisIdempotencyStore(kv.Client, "")
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		memStore := cache.NewInMemoryIdempotencyStore(time.Minute)
		onShutdown("idempotency store", func(context.Context) error { return memStore.Close() })
		idempotency = memStore
	}

	// Providers
	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:      cfg.Stripe.SecretKey,
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
	}, log)
	if err != nil {
		return fmt.Errorf("payments: %w", err)
	}

	objects, err := newObjectStorage(cfg, log)
	if err != nil {
		return err
	}

	mailer, err := notify.NewMailer(ctx, cfg.Mail, log)
	if err != nil {
		return err
	}
	sms, err := notify.NewSMSSender(ctx, cfg.SMS, log)
	if err != nil {
		return err
	}

	var addressProvider placesapp.Provider
	if cfg.Places.APIKey != "" {
		google, err := places.NewGoogleProvider(cfg.Places.APIKey, log,
			places.WithBaseURL(cfg.Places.BaseURL), places.WithTimeout(cfg.Places.Timeout))
		if err != nil {
			return err
		}
		addressProvider = google
	} else {
		log.Warn("Places API key not set, address autocomplete is disabled")
	}

	var slips orderapp.PackingSlipRenderer
	if cfg.Printing.Enabled {
		renderer := printing.NewChromedpRenderer(cfg.Printing, log)
		onShutdown("pdf renderer", func(context.Context) error { return renderer.Close() })
		slips = printing.NewPackingSlipPrinter(renderer, cfg.Store.Name)
	}

	policy, err := pricingPolicy(cfg.Store)
	if err != nil {
		return err
	}
	currency := policy.Currency

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	couponRepo := persistence.NewGormCouponRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	ticketRepo := persistence.NewGormTicketRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	subscriberRepo := persistence.NewGormSubscriberRepository(db.DB)
	webhookLog := persistence.NewGormWebhookEventLog(db.DB)

	// Event bus and notification handlers
	bus := event.NewInMemoryEventBus(log)
	store := notification.StoreInfo{
		Name:         cfg.Store.Name,
		PublicURL:    cfg.Store.PublicURL,
		SupportEmail: cfg.Store.SupportEmail,
	}
	orderNotifications := notification.NewOrderNotificationHandler(mailer, sms, store, log)
	ticketReplies := notification.NewTicketReplyHandler(mailer, store)
	welcome := notification.NewNewsletterWelcomeHandler(mailer, sms, store)
	bus.Subscribe(orderNotifications)
	bus.Subscribe(ticketReplies)
	bus.Subscribe(welcome)
	bus.Subscribe(metrics.EventCounter())
	log.Info("Event handlers registered",
		zap.Strings("order_notification_events", orderNotifications.EventTypes()),
		zap.Strings("ticket_reply_events", ticketReplies.EventTypes()),
		zap.Strings("newsletter_welcome_events", welcome.EventTypes()),
	)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	onShutdown("event bus", bus.Stop)

	// Application services
	productService := catalogapp.NewProductService(productRepo, objects, currency, log)
	productService.SetImageConfig(catalogapp.ImageConfig{
		UploadURLExpiry: cfg.Storage.PresignExpiry,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
	})
	imports := catalogapp.DefaultImportConfig()
	imports.MaxBytes = cfg.HTTP.MaxBodySize
	productService.SetImportConfig(imports)
	productService.SetEventPublisher(bus)

	cartService := cartapp.NewCartService(cartRepo, productRepo, objects, currency, cfg.Store.GuestCartTTL, log)

	checkoutService := checkoutapp.NewCheckoutService(checkoutapp.CheckoutServiceConfig{
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		CouponRepo:  couponRepo,
		OrderRepo:   orderRepo,
		Gateway:     gateway,
		WebhookLog:  webhookLog,
		Idempotency: idempotency,
		TxScope:     persistence.NewGormTransactionScope(db.DB),
		Events:      bus,
		Metrics:     metrics,
		Policy:      policy,
		Logger:      log,
	})
	couponService := checkoutapp.NewCouponService(couponRepo, currency)

	orderService := orderapp.NewOrderService(orderRepo, gateway, slips, log)
	orderService.SetEventPublisher(bus)
	orderService.SetStalePolicy(cfg.Scheduler.PendingOrderTTL, cfg.Scheduler.BatchSize)

	ticketService := supportapp.NewTicketService(ticketRepo, orderRepo, objects, log)
	ticketService.SetEventPublisher(bus)
	ticketService.SetAttachmentConfig(supportapp.AttachmentConfig{
		UploadURLExpiry:   cfg.Storage.PresignExpiry,
		DownloadURLExpiry: cfg.Storage.PresignExpiry,
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
	})

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, cartService, log)
	authService.SetEventPublisher(bus)
	userService := identityapp.NewUserService(userRepo, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	userService.SetEventPublisher(bus)

	newsletterService := marketingapp.NewNewsletterService(subscriberRepo, log)
	newsletterService.SetEventPublisher(bus)

	placesService := placesapp.NewService(addressProvider, cfg.Places.DefaultCountry, log)

	// Background sweeper
	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewSweeper(log, []scheduler.Job{
			{Name: "purge_expired_carts", Run: cartService.PurgeExpired},
			{Name: "cancel_stale_orders", Run: orderService.CancelStalePending},
		},
			scheduler.WithInterval(cfg.Scheduler.SweepInterval),
			scheduler.WithObserver(metrics.ObserveJob),
		)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		onShutdown("sweeper", sweeper.Stop)
		log.Info("Sweeper started",
			zap.Duration("interval", cfg.Scheduler.SweepInterval),
			zap.Duration("pending_order_ttl", cfg.Scheduler.PendingOrderTTL),
		)
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter *middleware.RateLimiter
	authLimit := gin.HandlerFunc(nil)
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRPS, cfg.HTTP.AuthRateLimitBurst)
		onShutdown("rate limiters", func(context.Context) error {
			limiter.Close()
			authLimiter.Close()
			return nil
		})
		authLimit = middleware.RateLimit(authLimiter)
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
			zap.Float64("auth_rps", cfg.HTTP.AuthRateLimitRPS),
		)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Metrics:        metrics,
		CORS:           cors,
		RateLimiter:    limiter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
	})

	jwtConfig := middleware.JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist, Logger: log}
	optionalJWT := jwtConfig
	optionalJWT.Optional = true
	session := middleware.GuestSessionConfig{Cookie: cfg.Cookie, TTL: cfg.Store.GuestCartTTL}
	issueSession := session
	issueSession.Issue = true

	guards := router.Guards{
		RequireUser:  middleware.JWTAuth(jwtConfig),
		OptionalUser: middleware.JWTAuth(optionalJWT),
		RequireAdmin: middleware.RequireAdmin(),
		IssueSession: middleware.GuestSession(issueSession),
		ReadSession:  middleware.GuestSession(session),
		AuthLimit:    authLimit,
		WebhookBody:  middleware.BodyLimit(cfg.HTTP.WebhookMaxBodySize),
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if kv.Available() {
		checks["redis"] = func(ctx context.Context) error { return kv.Client.Ping(ctx).Err() }
	}

	handlers := router.Handlers{
		Products:     handler.NewProductHandler(productService),
		Carts:        handler.NewCartHandler(cartService),
		Checkout:     handler.NewCheckoutHandler(checkoutService),
		Orders:       handler.NewOrderHandler(orderService),
		Tickets:      handler.NewTicketHandler(ticketService),
		AdminTickets: handler.NewAdminTicketHandler(ticketService),
		Auth:         handler.NewAuthHandler(authService, userService),
		Users:        handler.NewUserAdminHandler(userService),
		Newsletter:   handler.NewNewsletterHandler(newsletterService),
		Coupons:      handler.NewCouponHandler(couponService),
		Places:       handler.NewPlacesHandler(placesService),
		System:       handler.NewSystemHandler(cfg.App.Name, version, checks),
	}
	if cfg.Telemetry.MetricsEnabled {
		handlers.Metrics = metrics.Handler()
	}
	router.NewRouter(engine).Register(router.Routes(handlers, guards)...).Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited")
	return nil
}

func newObjectStorage(cfg *config.Config, log *zap.Logger) (shared.ObjectStorageService, error) {
	if cfg.Storage.Bucket == "" {
		if cfg.App.IsProduction() {
			return nil, errors.New("storage.bucket is required in production")
		}
		log.Warn("No storage bucket configured, uploads use the stub store")
		return storage.NewStubObjectStorage(cfg.Storage.PublicBaseURL), nil
	}
	return storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiry),
	)
}

func pricingPolicy(store config.StoreConfig) (checkout.PricingPolicy, error) {
	currency := valueobject.Currency(store.Currency)

	flat, err := store.FlatShippingAmount()
	if err != nil {
		return checkout.PricingPolicy{}, err
	}
	flatShipping, err := valueobject.NewMoney(flat, currency)
	if err != nil {
		return checkout.PricingPolicy{}, err
	}

	policy := checkout.PricingPolicy{Currency: currency, FlatShipping: flatShipping, TaxShipping: store.TaxShipping}
	threshold, err := store.FreeShippingThresholdAmount()
	if err != nil {
		return checkout.PricingPolicy{}, err
	}
	if threshold != nil {
		free, err := valueobject.NewMoney(*threshold, currency)
		if err != nil {
			return checkout.PricingPolicy{}, err
		}
		policy.FreeShippingThreshold = &free
	}
	if policy.TaxRate, err = store.TaxRateFraction(); err != nil {
		return checkout.PricingPolicy{}, err
	}
	return policy, policy.Validate()
}
