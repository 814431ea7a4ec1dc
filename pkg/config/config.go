package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	Service     ServiceConfig
	DB          DBConfig
	Redis       RedisConfig
	ShipStation ShipStationConfig
	Feed        FeedConfig
	Workflows   WorkflowsConfig
	Monitors    MonitorsConfig
	Reporting   ReportingConfig
	Features    FeatureFlagsConfig
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
	Env          string   `envconfig:"FULFILL_APP_ENV" required:"true"`
	Port         string   `envconfig:"FULFILL_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"FULFILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FULFILL_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FULFILL_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FULFILL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FULFILL_DB_DSN"`
	Driver string `envconfig:"FULFILL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FULFILL_DB_HOST"`
	LegacyPort     int    `envconfig:"FULFILL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FULFILL_DB_USER"`
	LegacyPassword string `envconfig:"FULFILL_DB_PASSWORD"`
	LegacyName     string `envconfig:"FULFILL_DB_NAME"`
	LegacySSLMode  string `envconfig:"FULFILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FULFILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FULFILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FULFILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FULFILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FULFILL_REDIS_URL"`
	Address      string        `envconfig:"FULFILL_REDIS_ADDR"`
	Password     string        `envconfig:"FULFILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FULFILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FULFILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FULFILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FULFILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FULFILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FULFILL_REDIS_WRITE_TIMEOUT" default:"5s"`
	KPICacheTTL  time.Duration `envconfig:"FULFILL_REDIS_KPI_CACHE_TTL" default:"30s"`
}

// ShipStationConfig carries the vendor API credentials plus the upload gate.
// LiveUploads is deliberately independent of AppConfig.Env: both must agree
// before any mutating call reaches the live platform.
type ShipStationConfig struct {
	APIKey         string        `envconfig:"FULFILL_SHIPSTATION_API_KEY" required:"true"`
	APISecret      string        `envconfig:"FULFILL_SHIPSTATION_API_SECRET" required:"true"`
	BaseURL        string        `envconfig:"FULFILL_SHIPSTATION_BASE_URL" default:"https://ssapi.shipstation.com"`
	StoreID        int           `envconfig:"FULFILL_SHIPSTATION_STORE_ID"`
	LiveUploads    bool          `envconfig:"FULFILL_SHIPSTATION_LIVE_UPLOADS" default:"false"`
	RequestTimeout time.Duration `envconfig:"FULFILL_SHIPSTATION_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"FULFILL_SHIPSTATION_MAX_RETRIES" default:"3"`
}

type FeedConfig struct {
	DropDir    string `envconfig:"FULFILL_FEED_DROP_DIR" default:"/var/fulfillment/feed"`
	ArchiveDir string `envconfig:"FULFILL_FEED_ARCHIVE_DIR" default:"/var/fulfillment/feed/archive"`
}

type WorkflowsConfig struct {
	FeedImportInterval  time.Duration `envconfig:"FULFILL_FEED_IMPORT_INTERVAL" default:"2m"`
	UploadInterval      time.Duration `envconfig:"FULFILL_UPLOAD_INTERVAL" default:"5m"`
	UploadBatchSize     int           `envconfig:"FULFILL_UPLOAD_BATCH_SIZE" default:"50"`
	ReconcileInterval   time.Duration `envconfig:"FULFILL_RECONCILE_INTERVAL" default:"10m"`
	ReconcileLookback   time.Duration `envconfig:"FULFILL_RECONCILE_LOOKBACK" default:"336h"`
	DuplicateInterval   time.Duration `envconfig:"FULFILL_DUPLICATE_SCAN_INTERVAL" default:"1h"`
	ViolationInterval   time.Duration `envconfig:"FULFILL_VIOLATION_SCAN_INTERVAL" default:"1h"`
	ReportingInterval   time.Duration `envconfig:"FULFILL_REPORTING_INTERVAL" default:"24h"`
	RetentionInterval   time.Duration `envconfig:"FULFILL_RETENTION_INTERVAL" default:"24h"`
	RetentionWindowDays int           `envconfig:"FULFILL_RETENTION_WINDOW_DAYS" default:"60"`
	MetricsAddress      string        `envconfig:"FULFILL_WORKER_METRICS_ADDR" default:":9090"`
}

type MonitorsConfig struct {
	DuplicateLookbackDays int    `envconfig:"FULFILL_DUPLICATE_LOOKBACK_DAYS" default:"90"`
	HawaiiExpectedService string `envconfig:"FULFILL_HAWAII_EXPECTED_SERVICE" default:"usps_priority_mail"`
	BencoExpectedCarrier  string `envconfig:"FULFILL_BENCO_EXPECTED_CARRIER" default:"fedex"`
	BencoOrderPrefix      string `envconfig:"FULFILL_BENCO_ORDER_PREFIX" default:"BEN"`
	CanadaExpectedService string `envconfig:"FULFILL_CANADA_EXPECTED_SERVICE" default:"ups_standard"`
}

type ReportingConfig struct {
	RollingWindowWeeks int `envconfig:"FULFILL_ROLLING_WINDOW_WEEKS" default:"52"`
	StorageFeeCents    int `envconfig:"FULFILL_STORAGE_FEE_CENTS" default:"45"`
	HandlingFeeCents   int `envconfig:"FULFILL_HANDLING_FEE_CENTS" default:"175"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FULFILL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FULFILL_AUTO_MIGRATE" default:"false"`
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
