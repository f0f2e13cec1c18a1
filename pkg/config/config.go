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
	Engine       EngineConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"COUPONHIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"COUPONHIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COUPONHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COUPONHIVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COUPONHIVE_DB_DSN"`
	Driver string `envconfig:"COUPONHIVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COUPONHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"COUPONHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COUPONHIVE_DB_USER"`
	LegacyPassword string `envconfig:"COUPONHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"COUPONHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"COUPONHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COUPONHIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COUPONHIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COUPONHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COUPONHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COUPONHIVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COUPONHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"COUPONHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"COUPONHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COUPONHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COUPONHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COUPONHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COUPONHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COUPONHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COUPONHIVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COUPONHIVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COUPONHIVE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// EngineConfig holds the point economy tunables.
type EngineConfig struct {
	StartingPoints  int `envconfig:"COUPONHIVE_ENGINE_STARTING_POINTS" default:"100"`
	DailyClaimLimit int `envconfig:"COUPONHIVE_ENGINE_DAILY_CLAIM_LIMIT" default:"3"`
	ClaimCost       int `envconfig:"COUPONHIVE_ENGINE_CLAIM_COST" default:"10"`
	BoostCost       int `envconfig:"COUPONHIVE_ENGINE_BOOST_COST" default:"25"`
	UploadReward    int `envconfig:"COUPONHIVE_ENGINE_UPLOAD_REWARD" default:"15"`
	DailyBonus      int `envconfig:"COUPONHIVE_ENGINE_DAILY_BONUS" default:"5"`
}

// BillingConfig covers the external billing provider's webhook surface.
type BillingConfig struct {
	WebhookSecret  string        `envconfig:"COUPONHIVE_BILLING_WEBHOOK_SECRET" required:"true"`
	IdempotencyTTL time.Duration `envconfig:"COUPONHIVE_BILLING_IDEMPOTENCY_TTL" default:"720h"`
}

// WebhookSigningSecret exposes the shared secret used to verify webhook payloads.
func (b BillingConfig) WebhookSigningSecret() string {
	return b.WebhookSecret
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COUPONHIVE_AUTO_MIGRATE" default:"false"`
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
