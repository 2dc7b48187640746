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
	Asaas        AsaasConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOOSTCV_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOSTCV_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOSTCV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOSTCV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOOSTCV_DB_DSN"`
	Driver string `envconfig:"BOOSTCV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOSTCV_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOSTCV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOSTCV_DB_USER"`
	LegacyPassword string `envconfig:"BOOSTCV_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOSTCV_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOSTCV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOSTCV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOSTCV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOSTCV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOSTCV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOSTCV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOOSTCV_REDIS_ADDR"`
	Password     string        `envconfig:"BOOSTCV_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOSTCV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOSTCV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOSTCV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOSTCV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOSTCV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOSTCV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AsaasConfig carries the payment gateway credentials. It is injected into
// the gateway client constructor so tests can point at fakes.
type AsaasConfig struct {
	APIKey       string        `envconfig:"BOOSTCV_ASAAS_API_KEY"`
	BaseURL      string        `envconfig:"BOOSTCV_ASAAS_BASE_URL" default:"https://api.asaas.com/v3"`
	WebhookToken string        `envconfig:"BOOSTCV_ASAAS_WEBHOOK_TOKEN"`
	Timeout      time.Duration `envconfig:"BOOSTCV_ASAAS_TIMEOUT" default:"15s"`
	Env          string        `envconfig:"BOOSTCV_ASAAS_ENV" default:"sandbox"`
}

// Environment returns the normalized Asaas environment (sandbox/production).
func (a AsaasConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(a.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type BillingConfig struct {
	ResumePriceCents       int64         `envconfig:"BOOSTCV_BILLING_RESUME_PRICE_CENTS" default:"990"`
	SubscriptionPriceCents int64         `envconfig:"BOOSTCV_BILLING_SUBSCRIPTION_PRICE_CENTS" default:"5990"`
	SubscriptionCycle      string        `envconfig:"BOOSTCV_BILLING_SUBSCRIPTION_CYCLE" default:"YEARLY"`
	WebhookEventTTL        time.Duration `envconfig:"BOOSTCV_BILLING_WEBHOOK_EVENT_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOOSTCV_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOOSTCV_AUTO_MIGRATE" default:"false"`
}

// IsSQLite reports whether the sqlite driver is selected, either directly or
// via the BOOSTCV_USE_SQLITE feature flag.
func (db DBConfig) IsSQLite() bool {
	return db.Driver == DBDriverSQLite
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = "file:boostcv.db?cache=shared"
		}
		return nil
	}
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
