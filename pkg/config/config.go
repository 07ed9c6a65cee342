package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// FRESHPRESS_* names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FRESHPRESS_DB_DSN"
	EnvDBHost = "FRESHPRESS_DB_HOST"
	EnvDBUser = "FRESHPRESS_DB_USER"
	EnvDBName = "FRESHPRESS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Eventing  EventingConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"FRESHPRESS_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHPRESS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRESHPRESS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESHPRESS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FRESHPRESS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FRESHPRESS_DB_DSN"`
	Driver string `envconfig:"FRESHPRESS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FRESHPRESS_DB_HOST"`
	LegacyPort     int    `envconfig:"FRESHPRESS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRESHPRESS_DB_USER"`
	LegacyPassword string `envconfig:"FRESHPRESS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRESHPRESS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRESHPRESS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHPRESS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHPRESS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHPRESS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHPRESS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"FRESHPRESS_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHPRESS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRESHPRESS_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHPRESS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHPRESS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHPRESS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHPRESS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHPRESS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHPRESS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHPRESS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FRESHPRESS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRESHPRESS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FRESHPRESS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FRESHPRESS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FRESHPRESS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FRESHPRESS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FRESHPRESS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"FRESHPRESS_PUBSUB_DOMAIN_TOPIC" default:"fp-domain-events"`
	DomainSubscription string `envconfig:"FRESHPRESS_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FRESHPRESS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FRESHPRESS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FRESHPRESS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type TelemetryConfig struct {
	LocationTTL time.Duration `envconfig:"FRESHPRESS_TELEMETRY_LOCATION_TTL" default:"5m"`
}

// RateLimitConfig throttles scan-gun traffic. Handheld scanners retry
// aggressively on flaky warehouse wifi, so the window is short and generous.
type RateLimitConfig struct {
	ScanWindow time.Duration `envconfig:"FRESHPRESS_RATE_LIMIT_SCAN_WINDOW" default:"1m"`
	ScanLimit  int           `envconfig:"FRESHPRESS_RATE_LIMIT_SCAN_LIMIT" default:"120"`
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
