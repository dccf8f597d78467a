package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the loaded configuration.
var Module = fx.Provide(Load)

// ProviderCredentials holds the app-only credentials for one upstream
// provider. An enumerator participates in the timer run only when its
// provider's credentials are fully configured.
type ProviderCredentials struct {
	TenantID  string
	AppID     string
	AppSecret string
}

func (c ProviderCredentials) Configured() bool {
	return c.TenantID != "" && c.AppID != "" && c.AppSecret != ""
}

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BlobBucket   string
	BlobRegion   string
	BlobEndpoint string

	ActiveDirectoryEndpoint string
	ResourceManagerEndpoint string
	PartnerCenterEndpoint   string
	GraphEndpoint           string

	Direct        ProviderCredentials
	PartnerCenter ProviderCredentials

	// UsageWindowDays is the trailing window for usage queries (now-N days
	// through now, daily granularity).
	UsageWindowDays int

	// QueueBatchSize bounds how many subscription messages are processed
	// concurrently.
	QueueBatchSize int

	SubscriptionsQueueName string

	EnumerationInterval time.Duration
	ProcessTimeout      time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "importer"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "billingimport"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		BlobBucket:   getenv("BLOB_BUCKET", "billing-import"),
		BlobRegion:   getenv("BLOB_REGION", "us-east-1"),
		BlobEndpoint: getenv("BLOB_ENDPOINT", ""),

		ActiveDirectoryEndpoint: getenv("ACTIVE_DIRECTORY_ENDPOINT", "https://login.microsoftonline.com"),
		ResourceManagerEndpoint: getenv("RESOURCE_MANAGER_ENDPOINT", "https://management.azure.com"),
		PartnerCenterEndpoint:   getenv("PARTNER_CENTER_ENDPOINT", "https://api.partnercenter.microsoft.com"),
		GraphEndpoint:           getenv("GRAPH_ENDPOINT", "https://graph.microsoft.com"),

		Direct: ProviderCredentials{
			TenantID:  getenv("DIRECT_TENANT_ID", ""),
			AppID:     getenv("DIRECT_APP_ID", ""),
			AppSecret: getenv("DIRECT_APP_SECRET", ""),
		},
		PartnerCenter: ProviderCredentials{
			TenantID:  getenv("PARTNER_CENTER_TENANT_ID", ""),
			AppID:     getenv("PARTNER_CENTER_APP_ID", ""),
			AppSecret: getenv("PARTNER_CENTER_APP_SECRET", ""),
		},

		UsageWindowDays:        getenvInt("USAGE_WINDOW_DAYS", 7),
		QueueBatchSize:         getenvInt("QUEUE_BATCH_SIZE", 16),
		SubscriptionsQueueName: getenv("SUBSCRIPTIONS_QUEUE_NAME", "subscriptions"),
		EnumerationInterval:    getenvDuration("ENUMERATION_INTERVAL", 24*time.Hour),
		ProcessTimeout:         getenvDuration("PROCESS_TIMEOUT", 5*time.Minute),
	}
}

// IsDevelopment reports whether development-mode behaviors (storage reset
// before the daily run) are enabled.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
