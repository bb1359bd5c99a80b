package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	ImageKit     ImageKitConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Reconcile    ReconcileConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Identity.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LAMA_APP_ENV" required:"true"`
	Port         string `envconfig:"LAMA_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"LAMA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LAMA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LAMA_LOG_WARN_STACK" default:"false"`
	ClientURL    string `envconfig:"LAMA_CLIENT_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LAMA_DB_DSN"`
	Driver string `envconfig:"LAMA_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"LAMA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAMA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAMA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAMA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"LAMA_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"LAMA_REDIS_URL"`
	Address      string        `envconfig:"LAMA_REDIS_ADDR"`
	Password     string        `envconfig:"LAMA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAMA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAMA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAMA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAMA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAMA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAMA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig selects and configures the external identity provider.
type IdentityConfig struct {
	Provider   string `envconfig:"LAMA_IDENTITY_PROVIDER" default:"firebase"`
	RoleSource string `envconfig:"LAMA_ROLE_SOURCE" default:"directory"`

	FirebaseProjectID       string `envconfig:"LAMA_FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `envconfig:"LAMA_FIREBASE_CREDENTIALS_FILE" default:"firebase-service-account.json"`
	FirebaseCredentialsJSON string `envconfig:"LAMA_FIREBASE_CREDENTIALS_JSON"`

	LocalSecret   string        `envconfig:"LAMA_LOCAL_JWT_SECRET"`
	LocalIssuer   string        `envconfig:"LAMA_LOCAL_JWT_ISSUER" default:"lama-local"`
	LocalTokenTTL time.Duration `envconfig:"LAMA_LOCAL_JWT_TTL" default:"1h"`
}

func (i IdentityConfig) IsLocal() bool {
	return strings.EqualFold(i.Provider, IdentityProviderLocal)
}

func (i IdentityConfig) validate() error {
	switch strings.ToLower(i.Provider) {
	case IdentityProviderFirebase:
	case IdentityProviderLocal:
		if i.LocalSecret == "" {
			return fmt.Errorf("%s is required for the local identity provider", EnvLocalJWTSecret)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvIdentityProvider, i.Provider)
	}
	switch strings.ToLower(i.RoleSource) {
	case RoleSourceDirectory, RoleSourceClaims:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvRoleSource, i.RoleSource)
	}
}

type ImageKitConfig struct {
	PublicKey    string        `envconfig:"LAMA_IMAGE_KIT_PUBLIC_KEY"`
	PrivateKey   string        `envconfig:"LAMA_IMAGE_KIT_PRIVATE_KEY"`
	URLEndpoint  string        `envconfig:"LAMA_IMAGE_KIT_ENDPOINT"`
	SignatureTTL time.Duration `envconfig:"LAMA_IMAGE_KIT_SIGNATURE_TTL" default:"30m"`
}

type RateLimitConfig struct {
	ChatWindow time.Duration `envconfig:"LAMA_RATE_LIMIT_CHAT_WINDOW" default:"1m"`
	ChatLimit  int           `envconfig:"LAMA_RATE_LIMIT_CHAT_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LAMA_AUTO_MIGRATE" default:"false"`
}

type ReconcileConfig struct {
	Interval    time.Duration `envconfig:"LAMA_RECONCILE_INTERVAL" default:"1h"`
	GracePeriod time.Duration `envconfig:"LAMA_RECONCILE_GRACE_PERIOD" default:"10m"`
	BatchSize   int           `envconfig:"LAMA_RECONCILE_BATCH_SIZE" default:"500"`
}

type MetricsConfig struct {
	Addr string `envconfig:"LAMA_METRICS_ADDR" default:":9090"`
}
