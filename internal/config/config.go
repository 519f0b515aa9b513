package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EbayCredentials holds eBay Trading API credentials
type EbayCredentials struct {
	AppID      string
	DevID      string
	CertID     string
	OAuthToken string
	SiteID     string
}

// AmazonCredentials holds SP-API credentials.
// One credential set serves amazon_us / amazon_jp / amazon_au.
type AmazonCredentials struct {
	Region        string
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	SellerID      string
	MarketplaceID string
}

// CoupangCredentials holds Coupang WING API credentials
type CoupangCredentials struct {
	AccessKey string
	SecretKey string
	VendorID  string
}

// PlatformCredentials bundles credentials for all marketplace clients.
// Injected at client construction; clients never read the environment.
type PlatformCredentials struct {
	Ebay    EbayCredentials
	Amazon  AmazonCredentials
	Coupang CoupangCredentials
}

// Config holds application configuration
type Config struct {
	DatabasePath    string
	LogDatabasePath string
	LogLevel        string
	Port            int
	DevMode         bool

	EbayServiceURL    string
	AmazonServiceURL  string
	CoupangServiceURL string
	Credentials       PlatformCredentials

	// Strategy engine
	MinStockQuantity  int
	MinPriorityScore  float64
	HistoryWindowDays int

	// Execution / retry
	TriggerStatus      string
	RetryBatchLimit    int
	MaxRetries         int
	BaseRetryMinutes   int
	StaleProcessingMin int

	ExecutionCycleSchedule string
	RetrySweepSchedule     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8010),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/crosslister.db"),
		LogDatabasePath: getEnv("LOG_DATABASE_PATH", "./data/execution_logs.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		EbayServiceURL:    getEnv("EBAY_SERVICE_URL", "https://api.ebay.com"),
		AmazonServiceURL:  getEnv("AMAZON_SERVICE_URL", "https://sellingpartnerapi-na.amazon.com"),
		CoupangServiceURL: getEnv("COUPANG_SERVICE_URL", "https://api-gateway.coupang.com"),

		Credentials: PlatformCredentials{
			Ebay: EbayCredentials{
				AppID:      getEnv("EBAY_APP_ID", ""),
				DevID:      getEnv("EBAY_DEV_ID", ""),
				CertID:     getEnv("EBAY_CERT_ID", ""),
				OAuthToken: getEnv("EBAY_OAUTH_TOKEN", ""),
				SiteID:     getEnv("EBAY_SITE_ID", "0"),
			},
			Amazon: AmazonCredentials{
				Region:        getEnv("AMAZON_REGION", "us"),
				ClientID:      getEnv("AMAZON_CLIENT_ID", ""),
				ClientSecret:  getEnv("AMAZON_CLIENT_SECRET", ""),
				RefreshToken:  getEnv("AMAZON_REFRESH_TOKEN", ""),
				SellerID:      getEnv("AMAZON_SELLER_ID", ""),
				MarketplaceID: getEnv("AMAZON_MARKETPLACE_ID", ""),
			},
			Coupang: CoupangCredentials{
				AccessKey: getEnv("COUPANG_ACCESS_KEY", ""),
				SecretKey: getEnv("COUPANG_SECRET_KEY", ""),
				VendorID:  getEnv("COUPANG_VENDOR_ID", ""),
			},
		},

		MinStockQuantity:  getEnvAsInt("MIN_STOCK_QUANTITY", 1),
		MinPriorityScore:  getEnvAsFloat("MIN_PRIORITY_SCORE", 0),
		HistoryWindowDays: getEnvAsInt("HISTORY_WINDOW_DAYS", 30),

		TriggerStatus:      getEnv("TRIGGER_STATUS", "strategy_determined"),
		RetryBatchLimit:    getEnvAsInt("RETRY_BATCH_LIMIT", 50),
		MaxRetries:         getEnvAsInt("MAX_RETRIES", 5),
		BaseRetryMinutes:   getEnvAsInt("BASE_RETRY_MINUTES", 5),
		StaleProcessingMin: getEnvAsInt("STALE_PROCESSING_MINUTES", 60),

		ExecutionCycleSchedule: getEnv("EXECUTION_CYCLE_SCHEDULE", "@every 5m"),
		RetrySweepSchedule:     getEnv("RETRY_SWEEP_SCHEDULE", "@every 1m"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.LogDatabasePath == "" {
		return fmt.Errorf("LOG_DATABASE_PATH is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	if c.RetryBatchLimit < 1 {
		return fmt.Errorf("RETRY_BATCH_LIMIT must be at least 1")
	}

	// Note: marketplace credentials optional in dev mode (stub clients)

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
