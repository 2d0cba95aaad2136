package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "PRESTALINK_APP_ENV"
	EnvPort       = "PRESTALINK_APP_PORT"
	EnvDBDSN      = "PRESTALINK_DB_DSN"
	EnvDBHost     = "PRESTALINK_DB_HOST"
	EnvDBUser     = "PRESTALINK_DB_USER"
	EnvDBName     = "PRESTALINK_DB_NAME"
	EnvRedisURL   = "PRESTALINK_REDIS_URL"
	EnvJWTSecret  = "PRESTALINK_JWT_SECRET"
	EnvJWTIssuer  = "PRESTALINK_JWT_ISSUER"
	EnvJWTExpMins = "PRESTALINK_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Credits      CreditsConfig
	Commission   CommissionConfig
	Booking      BookingConfig
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
	Env          string `envconfig:"PRESTALINK_APP_ENV" required:"true"`
	Port         string `envconfig:"PRESTALINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRESTALINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRESTALINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRESTALINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRESTALINK_DB_DSN"`
	Driver string `envconfig:"PRESTALINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRESTALINK_DB_HOST"`
	LegacyPort     int    `envconfig:"PRESTALINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRESTALINK_DB_USER"`
	LegacyPassword string `envconfig:"PRESTALINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRESTALINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRESTALINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRESTALINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRESTALINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRESTALINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRESTALINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRESTALINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRESTALINK_REDIS_ADDR"`
	Password     string        `envconfig:"PRESTALINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRESTALINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRESTALINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRESTALINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRESTALINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRESTALINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRESTALINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PRESTALINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRESTALINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRESTALINK_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRESTALINK_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"PRESTALINK_STRIPE_API_KEY"`
	Secret         string        `envconfig:"PRESTALINK_STRIPE_SECRET"`
	Env            string        `envconfig:"PRESTALINK_STRIPE_ENV" default:"test"`
	RequestTimeout time.Duration `envconfig:"PRESTALINK_STRIPE_REQUEST_TIMEOUT" default:"10s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRESTALINK_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"PRESTALINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"PRESTALINK_PUBSUB_DOMAIN_TOPIC" default:"plk-domain-events"`
	DomainSubscription string `envconfig:"PRESTALINK_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PRESTALINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PRESTALINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PRESTALINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionAge   time.Duration `envconfig:"PRESTALINK_OUTBOX_RETENTION_AGE" default:"720h"`
}

type CreditsConfig struct {
	InitialFreeCredits   int `envconfig:"PRESTALINK_CREDITS_INITIAL_FREE" default:"3"`
	ReferralBonusCredits int `envconfig:"PRESTALINK_CREDITS_REFERRAL_BONUS" default:"2"`
	LowBalanceThreshold  int `envconfig:"PRESTALINK_CREDITS_LOW_BALANCE_THRESHOLD" default:"1"`
}

type CommissionConfig struct {
	FreeOnlineMissions int    `envconfig:"PRESTALINK_COMMISSION_FREE_ONLINE_MISSIONS" default:"3"`
	OnlineRate         string `envconfig:"PRESTALINK_COMMISSION_ONLINE_RATE" default:"0.10"`
	CashRate           string `envconfig:"PRESTALINK_COMMISSION_CASH_RATE" default:"0.15"`
	CashFloorCents     int64  `envconfig:"PRESTALINK_COMMISSION_CASH_FLOOR_CENTS" default:"50"`
	GatewayRate        string `envconfig:"PRESTALINK_COMMISSION_GATEWAY_RATE" default:"0.029"`
	GatewayFixedCents  int64  `envconfig:"PRESTALINK_COMMISSION_GATEWAY_FIXED_CENTS" default:"30"`
}

type BookingConfig struct {
	FreeCancellationHours     int           `envconfig:"PRESTALINK_BOOKING_FREE_CANCELLATION_HOURS" default:"24"`
	CancellationFeePercentage int           `envconfig:"PRESTALINK_BOOKING_CANCELLATION_FEE_PCT" default:"50"`
	NoShowGrace               time.Duration `envconfig:"PRESTALINK_BOOKING_NO_SHOW_GRACE" default:"30m"`
	PaymentPendingTTL         time.Duration `envconfig:"PRESTALINK_BOOKING_PAYMENT_PENDING_TTL" default:"30m"`
	Currency                  string        `envconfig:"PRESTALINK_BOOKING_CURRENCY" default:"eur"`
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
