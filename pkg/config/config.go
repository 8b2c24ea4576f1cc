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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Identity     IdentityConfig
	Rollup       RollupConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Rollup.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTAL_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTAL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RENTAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// HTTPConfig tunes the public API surface.
type HTTPConfig struct {
	CORSOrigins    []string      `envconfig:"RENTAL_CORS_ORIGINS" default:"http://localhost:3000"`
	IngestWindow   time.Duration `envconfig:"RENTAL_INGEST_RATE_WINDOW" default:"1m"`
	IngestLimit    int           `envconfig:"RENTAL_INGEST_RATE_LIMIT" default:"600"`
	IdempotencyTTL time.Duration `envconfig:"RENTAL_IDEMPOTENCY_TTL" default:"24h"`
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTAL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTAL_DB_DSN"`
	Driver string `envconfig:"RENTAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTAL_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTAL_DB_USER"`
	LegacyPassword string `envconfig:"RENTAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"RENTAL_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTAL_REDIS_URL"`
	Address      string        `envconfig:"RENTAL_REDIS_ADDR"`
	Password     string        `envconfig:"RENTAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"RENTAL_AUTO_MIGRATE" default:"false"`
	RollupExport bool `envconfig:"RENTAL_FEATURE_ROLLUP_EXPORT" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RENTAL_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"RENTAL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RENTAL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"RENTAL_PUBSUB_NOTIFICATION_TOPIC" default:"rental-notification-events"`
}

type BigQueryConfig struct {
	Dataset        string `envconfig:"RENTAL_BIGQUERY_DATASET" default:"rental"`
	SiteStatsTable string `envconfig:"RENTAL_BIGQUERY_SITE_STATS_TABLE" default:"daily_site_stats"`
	// CreateTable lets the exporter create a missing site stats table.
	CreateTable bool `envconfig:"RENTAL_BIGQUERY_CREATE_TABLE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RENTAL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RENTAL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RENTAL_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"RENTAL_OUTBOX_RETENTION_DAYS" default:"30"`

	// RetryBase is the delay after the first failed attempt. It doubles per
	// attempt up to RetryMax.
	RetryBase time.Duration `envconfig:"RENTAL_OUTBOX_RETRY_BASE" default:"2s"`
	RetryMax  time.Duration `envconfig:"RENTAL_OUTBOX_RETRY_MAX" default:"5m"`
}

// IdentityConfig points at the user directory that resolves owner references to emails.
type IdentityConfig struct {
	BaseURL  string        `envconfig:"RENTAL_IDENTITY_BASE_URL" default:"http://localhost:8000"`
	Timeout  time.Duration `envconfig:"RENTAL_IDENTITY_TIMEOUT" default:"5s"`
	CacheTTL time.Duration `envconfig:"RENTAL_IDENTITY_CACHE_TTL" default:"10m"`
	CacheMax int           `envconfig:"RENTAL_IDENTITY_CACHE_MAX" default:"1024"`
}

type RollupConfig struct {
	Schedule string        `envconfig:"RENTAL_ROLLUP_SCHEDULE" default:"5 0 * * *"`
	Timezone string        `envconfig:"RENTAL_ROLLUP_TIMEZONE" default:"UTC"`
	LockKey  string        `envconfig:"RENTAL_ROLLUP_LOCK_KEY" default:"rollup-worker:%s"`
	LockTTL  time.Duration `envconfig:"RENTAL_ROLLUP_LOCK_TTL" default:"1h"`
	Lookback int           `envconfig:"RENTAL_ROLLUP_LOOKBACK_DAYS" default:"1"`
}

// Location resolves the configured rollup timezone.
func (r RollupConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(r.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvRollupTimezone, name, err)
	}
	return loc, nil
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
