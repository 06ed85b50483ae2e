package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DevJWTSecret is used when no secret is configured outside production
const DevJWTSecret = "fruitstand-development-secret-do-not-use"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Cookie    CookieConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Stripe    StripeConfig
	Storage   StorageConfig
	Mail      MailConfig
	SMS       SMSConfig
	Places    PlacesConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	Printing  PrintingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs with production safeguards
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	MaxHeaderBytes     int
	MaxBodySize        int64
	WebhookMaxBodySize int64
	RateLimitEnabled   bool
	RateLimitRPS       float64 // sustained requests per second per client
	RateLimitBurst     int
	AuthRateLimitRPS   float64 // stricter bucket for /auth endpoints
	AuthRateLimitBurst int
	CORSAllowOrigins   []string
	CORSAllowMethods   []string
	CORSAllowHeaders   []string
	TrustedProxies     []string
}

// CookieConfig holds settings for the guest session cookie
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite string // "strict", "lax", or "none"
}

// DatabaseConfig holds database connection settings.
// URL, when set, takes precedence over the discrete fields.
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
}

// StripeConfig holds payment gateway credentials
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// Enabled reports whether payments can be taken
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// StorageConfig holds S3 object storage settings
type StorageConfig struct {
	Region          string
	Bucket          string
	Endpoint        string // custom endpoint for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignExpiry   time.Duration
	PublicBaseURL   string // CDN or bucket URL for product images
	MaxUploadBytes  int64
}

// MailConfig holds transactional email settings
type MailConfig struct {
	Provider string // "ses" or "log"
	From     string
	ReplyTo  string
	Region   string
}

// SMSConfig holds text message settings
type SMSConfig struct {
	Provider string // "sns" or "log"
	SenderID string
	Region   string
}

// PlacesConfig holds address autocomplete settings
type PlacesConfig struct {
	APIKey         string
	DefaultCountry string
	BaseURL        string
	Timeout        time.Duration
}

// StoreConfig holds storefront pricing rules. Money amounts are decimal strings.
type StoreConfig struct {
	Name                  string
	PublicURL             string
	SupportEmail          string
	Currency              string
	FlatShipping          string
	FreeShippingThreshold string // "none" disables free shipping
	TaxRate               string // fraction, e.g. "0.0875"
	TaxShipping           bool
	GuestCartTTL          time.Duration
}

// SchedulerConfig holds background sweeper settings
type SchedulerConfig struct {
	Enabled         bool
	SweepInterval   time.Duration
	PendingOrderTTL time.Duration
	BatchSize       int
}

// TelemetryConfig holds OpenTelemetry and metrics configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to export traces
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	MetricsEnabled    bool // Prometheus /metrics endpoint
	OTLPMetrics       bool // push DB pool metrics to the collector
	OTLPLogs          bool // mirror zap logs to the collector
	MetricsInterval   time.Duration
	DBSlowQueryThresh time.Duration
}

// PrintingConfig holds headless Chrome settings for packing slips
type PrintingConfig struct {
	Enabled   bool
	RemoteURL string // DevTools websocket URL; empty launches a local browser
	Timeout   time.Duration
	NoSandbox bool
}

// envAliases maps config keys to the conventional unprefixed variables that
// hosting platforms set. FRUITSTAND_-prefixed names always win.
var envAliases = map[string]string{
	"database.url":           "DATABASE_URL",
	"redis.url":              "REDIS_URL",
	"stripe.secret_key":      "STRIPE_SECRET_KEY",
	"stripe.publishable_key": "STRIPE_PUBLISHABLE_KEY",
	"stripe.webhook_secret":  "STRIPE_WEBHOOK_SECRET",
	"places.api_key":         "GOOGLE_MAPS_API_KEY",
	"storage.region":         "AWS_REGION",
	"storage.bucket":         "S3_BUCKET",
	"mail.from":              "MAIL_FROM",
	"jwt.secret":             "JWT_SECRET",
	"app.port":               "PORT",
}

// Load loads configuration from a .env file, config.toml and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FRUITSTAND_ prefix (e.g., FRUITSTAND_DATABASE_PASSWORD)
// 2. Unprefixed aliases such as DATABASE_URL or STRIPE_SECRET_KEY
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/fruitstand")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FRUITSTAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := "FRUITSTAND_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:        v.GetDuration("http.read_timeout"),
			WriteTimeout:       v.GetDuration("http.write_timeout"),
			IdleTimeout:        v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:    v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:     v.GetInt("http.max_header_bytes"),
			MaxBodySize:        v.GetInt64("http.max_body_size"),
			WebhookMaxBodySize: v.GetInt64("http.webhook_max_body_size"),
			RateLimitEnabled:   v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:       v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:     v.GetInt("http.rate_limit_burst"),
			AuthRateLimitRPS:   v.GetFloat64("http.auth_rate_limit_rps"),
			AuthRateLimitBurst: v.GetInt("http.auth_rate_limit_burst"),
			CORSAllowOrigins:   v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:   v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:   v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:     v.GetStringSlice("http.trusted_proxies"),
		},
		Cookie: CookieConfig{
			Name:     v.GetString("cookie.name"),
			Domain:   v.GetString("cookie.domain"),
			Path:     v.GetString("cookie.path"),
			Secure:   v.GetBool("cookie.secure"),
			SameSite: v.GetString("cookie.same_site"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("redis.url"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("stripe.secret_key"),
			PublishableKey: v.GetString("stripe.publishable_key"),
			WebhookSecret:  v.GetString("stripe.webhook_secret"),
		},
		Storage: StorageConfig{
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			PresignExpiry:   v.GetDuration("storage.presign_expiry"),
			PublicBaseURL:   v.GetString("storage.public_base_url"),
			MaxUploadBytes:  v.GetInt64("storage.max_upload_bytes"),
		},
		Mail: MailConfig{
			Provider: v.GetString("mail.provider"),
			From:     v.GetString("mail.from"),
			ReplyTo:  v.GetString("mail.reply_to"),
			Region:   v.GetString("mail.region"),
		},
		SMS: SMSConfig{
			Provider: v.GetString("sms.provider"),
			SenderID: v.GetString("sms.sender_id"),
			Region:   v.GetString("sms.region"),
		},
		Places: PlacesConfig{
			APIKey:         v.GetString("places.api_key"),
			DefaultCountry: v.GetString("places.default_country"),
			BaseURL:        v.GetString("places.base_url"),
			Timeout:        v.GetDuration("places.timeout"),
		},
		Store: StoreConfig{
			Name:                  v.GetString("store.name"),
			PublicURL:             v.GetString("store.public_url"),
			SupportEmail:          v.GetString("store.support_email"),
			Currency:              v.GetString("store.currency"),
			FlatShipping:          v.GetString("store.flat_shipping"),
			FreeShippingThreshold: v.GetString("store.free_shipping_threshold"),
			TaxRate:               v.GetString("store.tax_rate"),
			TaxShipping:           v.GetBool("store.tax_shipping"),
			GuestCartTTL:          v.GetDuration("store.guest_cart_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:         v.GetBool("scheduler.enabled"),
			SweepInterval:   v.GetDuration("scheduler.sweep_interval"),
			PendingOrderTTL: v.GetDuration("scheduler.pending_order_ttl"),
			BatchSize:       v.GetInt("scheduler.batch_size"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricsEnabled:    !v.IsSet("telemetry.metrics_enabled") || v.GetBool("telemetry.metrics_enabled"),
			OTLPMetrics:       v.GetBool("telemetry.otlp_metrics"),
			OTLPLogs:          v.GetBool("telemetry.otlp_logs"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Printing: PrintingConfig{
			Enabled:   v.GetBool("printing.enabled"),
			RemoteURL: v.GetString("printing.remote_url"),
			Timeout:   v.GetDuration("printing.timeout"),
			NoSandbox: v.GetBool("printing.no_sandbox"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fruitstand"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 20 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.WebhookMaxBodySize == 0 {
		cfg.HTTP.WebhookMaxBodySize = 64 << 10 // 64KB
	}
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 10
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 40
	}
	if cfg.HTTP.AuthRateLimitRPS == 0 {
		cfg.HTTP.AuthRateLimitRPS = 0.2
	}
	if cfg.HTTP.AuthRateLimitBurst == 0 {
		cfg.HTTP.AuthRateLimitBurst = 5
	}
	// Empty CORS origins means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Session-Token"}
	}

	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "fs_session"
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == "" {
		cfg.Cookie.SameSite = "lax"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fruitstand"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.JWT.Secret == "" && !cfg.App.IsProduction() {
		cfg.JWT.Secret = DevJWTSecret
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 7 * 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "fruitstand"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.IsProduction() {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiry == 0 {
		cfg.Storage.PresignExpiry = 15 * time.Minute
	}
	if cfg.Storage.MaxUploadBytes == 0 {
		cfg.Storage.MaxUploadBytes = 10 << 20 // 10MB
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "log"
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "Fruitstand <orders@fruitstand.local>"
	}
	if cfg.Mail.Region == "" {
		cfg.Mail.Region = cfg.Storage.Region
	}
	if cfg.SMS.Provider == "" {
		cfg.SMS.Provider = "log"
	}
	if cfg.SMS.Region == "" {
		cfg.SMS.Region = cfg.Storage.Region
	}

	if cfg.Places.DefaultCountry == "" {
		cfg.Places.DefaultCountry = "us"
	}
	if cfg.Places.Timeout == 0 {
		cfg.Places.Timeout = 5 * time.Second
	}

	if cfg.Store.Name == "" {
		cfg.Store.Name = "Fruitstand"
	}
	if cfg.Store.PublicURL == "" {
		cfg.Store.PublicURL = "http://localhost:3000"
	}
	if cfg.Store.Currency == "" {
		cfg.Store.Currency = "USD"
	}
	cfg.Store.Currency = strings.ToUpper(cfg.Store.Currency)
	if cfg.Store.FlatShipping == "" {
		cfg.Store.FlatShipping = "5.99"
	}
	if cfg.Store.FreeShippingThreshold == "" {
		cfg.Store.FreeShippingThreshold = "75.00"
	}
	if cfg.Store.TaxRate == "" {
		cfg.Store.TaxRate = "0"
	}
	if cfg.Store.GuestCartTTL == 0 {
		cfg.Store.GuestCartTTL = 7 * 24 * time.Hour
	}

	if cfg.Scheduler.SweepInterval == 0 {
		cfg.Scheduler.SweepInterval = time.Hour
	}
	if cfg.Scheduler.PendingOrderTTL == 0 {
		cfg.Scheduler.PendingOrderTTL = 48 * time.Hour
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 100
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = time.Minute
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if len(c.Store.Currency) != 3 {
		return fmt.Errorf("store.currency must be a 3-letter ISO code, got %q", c.Store.Currency)
	}
	if _, err := c.Store.FlatShippingAmount(); err != nil {
		return err
	}
	if _, err := c.Store.FreeShippingThresholdAmount(); err != nil {
		return err
	}
	rate, err := c.Store.TaxRateFraction()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("store.tax_rate must be a fraction between 0 and 1, got %s", c.Store.TaxRate)
	}

	switch c.Mail.Provider {
	case "ses", "log":
	default:
		return fmt.Errorf("mail.provider must be 'ses' or 'log', got %q", c.Mail.Provider)
	}
	switch c.SMS.Provider {
	case "sns", "log":
	default:
		return fmt.Errorf("sms.provider must be 'sns' or 'log', got %q", c.SMS.Provider)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if c.JWT.Secret == DevJWTSecret {
			return fmt.Errorf("jwt.secret must not use the development default in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if strings.HasPrefix(c.Stripe.SecretKey, "sk_test_") {
			return fmt.Errorf("stripe.secret_key must be a live key in production")
		}
		if c.Stripe.Enabled() && c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.webhook_secret is required in production")
		}
		if c.Database.sslDisabled() {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// FlatShippingAmount parses the flat shipping rate
func (s StoreConfig) FlatShippingAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s.FlatShipping)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store.flat_shipping is not a valid amount: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("store.flat_shipping cannot be negative")
	}
	return d, nil
}

// FreeShippingThresholdAmount parses the free shipping threshold.
// "none" disables free shipping and returns nil.
func (s StoreConfig) FreeShippingThresholdAmount() (*decimal.Decimal, error) {
	if strings.EqualFold(s.FreeShippingThreshold, "none") {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("store.free_shipping_threshold is not a valid amount: %w", err)
	}
	return &d, nil
}

// TaxRateFraction parses the tax rate
func (s StoreConfig) TaxRateFraction() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store.tax_rate is not a valid number: %w", err)
	}
	return d, nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *DatabaseConfig) sslDisabled() bool {
	if d.URL == "" {
		return d.SSLMode == "disable"
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return false
	}
	return u.Query().Get("sslmode") == "disable"
}
