package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Sendgrid      SendgridConfig
	Outbox        OutboxConfig
	Printer       PrinterConfig
	Invoice       InvoiceConfig
	Cart          CartConfig
	Cron          CronConfig
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
	Env          string `envconfig:"REPAIRSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"REPAIRSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REPAIRSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REPAIRSHOP_LOG_WARN_STACK" default:"false"`

	// ShopName is printed and mailed until the owner saves store info.
	ShopName string `envconfig:"REPAIRSHOP_SHOP_NAME" default:"Repair Shop"`

	// AllowedOrigins is a comma separated CORS allow list for the counter app.
	AllowedOrigins string `envconfig:"REPAIRSHOP_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (a AppConfig) Origins() []string {
	var out []string
	for _, origin := range strings.Split(a.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"REPAIRSHOP_SERVICE_KIND" default:"api"`
	// MetricsAddr is where the workers serve /metrics. Empty disables it; the
	// API serves /metrics on its own port.
	MetricsAddr string `envconfig:"REPAIRSHOP_METRICS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"REPAIRSHOP_DB_DSN"`
	Driver string `envconfig:"REPAIRSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REPAIRSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"REPAIRSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REPAIRSHOP_DB_USER"`
	LegacyPassword string `envconfig:"REPAIRSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"REPAIRSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"REPAIRSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REPAIRSHOP_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"REPAIRSHOP_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"REPAIRSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REPAIRSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery logs statements that run longer than this; zero disables it.
	SlowQuery time.Duration `envconfig:"REPAIRSHOP_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REPAIRSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REPAIRSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"REPAIRSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"REPAIRSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REPAIRSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REPAIRSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REPAIRSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REPAIRSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REPAIRSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
	SlowCommand  time.Duration `envconfig:"REPAIRSHOP_REDIS_SLOW_COMMAND" default:"100ms"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"REPAIRSHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"REPAIRSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"REPAIRSHOP_JWT_EXPIRATION_MINUTES" default:"720"`
	RefreshTokenTTLMinutes int    `envconfig:"REPAIRSHOP_REFRESH_TOKEN_TTL_MINUTES" default:"20160"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"REPAIRSHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"REPAIRSHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"REPAIRSHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"REPAIRSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"REPAIRSHOP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"REPAIRSHOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"REPAIRSHOP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"REPAIRSHOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"REPAIRSHOP_AUTO_MIGRATE" default:"false"`
	ArchiveReceipts bool `envconfig:"REPAIRSHOP_ARCHIVE_RECEIPTS" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"REPAIRSHOP_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"REPAIRSHOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"REPAIRSHOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"REPAIRSHOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"REPAIRSHOP_GCS_BUCKET_NAME"`
	ReceiptPrefix string `envconfig:"REPAIRSHOP_GCS_RECEIPT_PREFIX" default:"receipts"`
}

type PubSubConfig struct {
	SalesTopic               string `envconfig:"REPAIRSHOP_PUBSUB_SALES_TOPIC" default:"rs-sales-events"`
	SalesSubscription        string `envconfig:"REPAIRSHOP_PUBSUB_SALES_SUBSCRIPTION" default:"rs-sales-analytics"`
	NotificationTopic        string `envconfig:"REPAIRSHOP_PUBSUB_NOTIFICATION_TOPIC" default:"rs-notification-events"`
	NotificationSubscription string `envconfig:"REPAIRSHOP_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"rs-notification-mailer"`

	// SalesMailSubscription fans sale events out to the receipt mailer.
	SalesMailSubscription string `envconfig:"REPAIRSHOP_PUBSUB_SALES_MAIL_SUBSCRIPTION" default:"rs-sales-mailer"`
}

type BigQueryConfig struct {
	Dataset    string `envconfig:"REPAIRSHOP_BIGQUERY_DATASET" default:"repairshop"`
	SalesTable string `envconfig:"REPAIRSHOP_BIGQUERY_SALES_TABLE" default:"sale_lines"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"REPAIRSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"REPAIRSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"REPAIRSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"REPAIRSHOP_OUTBOX_RETENTION_DAYS" default:"30"`
	// DLQRetentionDays keeps dead letters around longer for manual requeue.
	DLQRetentionDays int `envconfig:"REPAIRSHOP_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"REPAIRSHOP_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"REPAIRSHOP_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"REPAIRSHOP_SENDGRID_FROM_NAME" default:"Repair Shop"`

	// OwnerEmail receives operational alerts such as low stock.
	OwnerEmail string `envconfig:"REPAIRSHOP_OWNER_EMAIL"`
}

// Enabled reports whether outbound mail can be sent.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.DefaultFrom) != ""
}

type PrinterConfig struct {
	Addr         string        `envconfig:"REPAIRSHOP_PRINTER_ADDR"`
	DialTimeout  time.Duration `envconfig:"REPAIRSHOP_PRINTER_DIAL_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REPAIRSHOP_PRINTER_WRITE_TIMEOUT" default:"5s"`
	Columns      int           `envconfig:"REPAIRSHOP_PRINTER_COLUMNS" default:"32"`
}

type InvoiceConfig struct {
	Prefix string `envconfig:"REPAIRSHOP_INVOICE_PREFIX" default:"INV-"`
	Series string `envconfig:"REPAIRSHOP_INVOICE_SERIES" default:"default"`
}

type CartConfig struct {
	TTL             time.Duration `envconfig:"REPAIRSHOP_CART_TTL" default:"12h"`
	CheckoutLockTTL time.Duration `envconfig:"REPAIRSHOP_CHECKOUT_LOCK_TTL" default:"2m"`
	Currency        string        `envconfig:"REPAIRSHOP_CURRENCY" default:"USD"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"REPAIRSHOP_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
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
