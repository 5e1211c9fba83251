package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "POSLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "POSLEDGER_APP_ENV"
	EnvPort              = "POSLEDGER_APP_PORT"
	EnvDBDSN             = "POSLEDGER_DB_DSN"
	EnvDBHost            = "POSLEDGER_DB_HOST"
	EnvDBUser            = "POSLEDGER_DB_USER"
	EnvDBName            = "POSLEDGER_DB_NAME"
	EnvRedisURL          = "POSLEDGER_REDIS_URL"
	EnvJWTSecret         = "POSLEDGER_JWT_SECRET"
	EnvJWTIssuer         = "POSLEDGER_JWT_ISSUER"
	EnvInventoryBaseURL  = "POSLEDGER_INVENTORY_BASE_URL"
	EnvInventoryTimeout  = "POSLEDGER_INVENTORY_TIMEOUT"
	EnvWalletCountryCode = "POSLEDGER_WALLET_COUNTRY_CODE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Wallet       WalletConfig
	HTTP         HTTPConfig
	Cron         CronConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"POSLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POSLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POSLEDGER_DB_DSN"`
	Driver string `envconfig:"POSLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POSLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"POSLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POSLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"POSLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"POSLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"POSLEDGER_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"POSLEDGER_SQLITE_PATH" default:"posledger.db"`

	MaxOpenConns    int           `envconfig:"POSLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POSLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"POSLEDGER_DB_SLOW_QUERY" default:"250ms"`
}

// RedisConfig is optional: with neither URL nor address set the service runs
// with in-process wallet locks and without HTTP idempotency replay.
type RedisConfig struct {
	URL          string        `envconfig:"POSLEDGER_REDIS_URL"`
	Address      string        `envconfig:"POSLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"POSLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"POSLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"POSLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"POSLEDGER_JWT_EXPIRATION_MINUTES" default:"480"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"POSLEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"POSLEDGER_AUTO_MIGRATE" default:"false"`
}

// InventoryConfig points at the production/warehouse service. An empty base URL
// leaves the gateway unavailable; settlements still complete and every line is
// recorded as a shortage.
type InventoryConfig struct {
	BaseURL string        `envconfig:"POSLEDGER_INVENTORY_BASE_URL"`
	APIKey  string        `envconfig:"POSLEDGER_INVENTORY_API_KEY"`
	Timeout time.Duration `envconfig:"POSLEDGER_INVENTORY_TIMEOUT" default:"3s"`
}

type WalletConfig struct {
	CountryCode string        `envconfig:"POSLEDGER_WALLET_COUNTRY_CODE" default:"62"`
	LockTTL     time.Duration `envconfig:"POSLEDGER_WALLET_LOCK_TTL" default:"10s"`
}

type HTTPConfig struct {
	CORSOrigins            []string      `envconfig:"POSLEDGER_CORS_ORIGINS"`
	DiscountValidateLimit  int           `envconfig:"POSLEDGER_DISCOUNT_VALIDATE_LIMIT" default:"60"`
	DiscountValidateWindow time.Duration `envconfig:"POSLEDGER_DISCOUNT_VALIDATE_WINDOW" default:"1m"`
	ShutdownTimeout        time.Duration `envconfig:"POSLEDGER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// CronConfig drives the cron-worker's ledger sweep.
type CronConfig struct {
	Interval  time.Duration `envconfig:"POSLEDGER_CRON_INTERVAL" default:"1h"`
	LockTTL   time.Duration `envconfig:"POSLEDGER_CRON_LOCK_TTL" default:"2h"`
	BatchSize int           `envconfig:"POSLEDGER_CRON_BATCH_SIZE" default:"200"`
	// JobTimeout must stay below LockTTL so a stuck sweep releases the lock.
	JobTimeout time.Duration `envconfig:"POSLEDGER_CRON_JOB_TIMEOUT" default:"30m"`
}

// PubSubConfig is only read by the outbox-publisher. The API writes outbox
// rows regardless of whether a publisher runs.
type PubSubConfig struct {
	ProjectID       string `envconfig:"POSLEDGER_GCP_PROJECT_ID"`
	CredentialsFile string `envconfig:"POSLEDGER_GCP_CREDENTIALS_FILE"`
	OrdersTopic     string `envconfig:"POSLEDGER_PUBSUB_ORDERS_TOPIC" default:"posledger-orders"`
	InventoryTopic  string `envconfig:"POSLEDGER_PUBSUB_INVENTORY_TOPIC" default:"posledger-inventory"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"POSLEDGER_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"POSLEDGER_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"POSLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
