package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Square       SquareConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRIGHTCART_APP_ENV" required:"true"`
	Port         string `envconfig:"BRIGHTCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRIGHTCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRIGHTCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRIGHTCART_DB_DSN"`
	Driver string `envconfig:"BRIGHTCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRIGHTCART_DB_HOST"`
	LegacyPort     int    `envconfig:"BRIGHTCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRIGHTCART_DB_USER"`
	LegacyPassword string `envconfig:"BRIGHTCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRIGHTCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRIGHTCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRIGHTCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRIGHTCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRIGHTCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRIGHTCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRIGHTCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRIGHTCART_REDIS_ADDR"`
	Password     string        `envconfig:"BRIGHTCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRIGHTCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRIGHTCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRIGHTCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRIGHTCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRIGHTCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRIGHTCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BRIGHTCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BRIGHTCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BRIGHTCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BRIGHTCART_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BRIGHTCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BRIGHTCART_AUTO_MIGRATE" default:"false"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"BRIGHTCART_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"BRIGHTCART_SQUARE_WEBHOOK_SECRET"`
	WebhookURL    string `envconfig:"BRIGHTCART_SQUARE_WEBHOOK_URL"`
	LocationID    string `envconfig:"BRIGHTCART_SQUARE_LOCATION_ID"`
	Env           string `envconfig:"BRIGHTCART_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CheckoutConfig struct {
	SessionTTL     time.Duration `envconfig:"BRIGHTCART_CHECKOUT_SESSION_TTL" default:"24h"`
	GatewayTimeout time.Duration `envconfig:"BRIGHTCART_CHECKOUT_GATEWAY_TIMEOUT" default:"10s"`
}

type RateLimitConfig struct {
	CartWindow     time.Duration `envconfig:"BRIGHTCART_RATE_LIMIT_CART_WINDOW" default:"1m"`
	CartLimit      int64         `envconfig:"BRIGHTCART_RATE_LIMIT_CART_LIMIT" default:"60"`
	CheckoutWindow time.Duration `envconfig:"BRIGHTCART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int64         `envconfig:"BRIGHTCART_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BRIGHTCART_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"BRIGHTCART_CRON_LOCK_TTL" default:"30m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BRIGHTCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"BRIGHTCART_PUBSUB_ORDERS_TOPIC" default:"bc-order-events"`
	OrdersSubscription string `envconfig:"BRIGHTCART_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BRIGHTCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BRIGHTCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BRIGHTCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
