package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	RedisAddr     string
	RedisPort     string
	RedisPassword string
	JWTSecret     string

	// External collaborators; empty values select in-process fallbacks.
	XPServiceURL  string
	KYCServiceURL string

	// Log configuration
	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool

	Economy EconomyConfig
}

// EconomyConfig holds every tunable of the DGT economy. It is loaded once at
// startup and handed to the economy engine and feature gate evaluator at
// construction time; nothing reads these values from the environment at call
// time.
type EconomyConfig struct {
	// TipBurnPercent is expressed in basis points (100 = 1%).
	TipBurnPercent int64

	TipCooldown time.Duration
	TipDailyCap int64

	RainCooldown      time.Duration
	RainDailyCap      int64
	RainMaxRecipients int
	RainMinShare      int64

	WithdrawCooldown   time.Duration
	WithdrawDailyCap   int64
	WithdrawMinUSD     int64 // USD cents
	WithdrawMaxUSD     int64 // USD cents
	WithdrawFeePercent int64 // basis points
	WithdrawFeeFlat    int64 // DGT minor units

	// USDCentsPerDGT is the peg rate: how many USD cents one DGT is worth.
	// Conversions always use the rate in effect at confirmation time.
	USDCentsPerDGT int64

	GatewayTimeout time.Duration

	// WatchInterval is how often the settlement watcher sweeps for stale
	// awaiting_external rows.
	WatchInterval time.Duration

	// SettleRetries bounds optimistic retry loops in the ledger and rate guard.
	SettleRetries int
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) RedisFullAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisAddr, c.RedisPort)
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        os.Getenv("DB_PORT"),
		RedisAddr:     os.Getenv("REDIS_HOST"),
		RedisPort:     os.Getenv("REDIS_PORT"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),

		XPServiceURL:  getEnv("XP_SERVICE_URL", ""),
		KYCServiceURL: getEnv("KYC_SERVICE_URL", ""),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFilename:   getEnv("LOG_FILENAME", "logs/app.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),

		Economy: LoadEconomyConfig(),
	}, nil
}

// LoadEconomyConfig reads the economy tunables with production defaults.
// Split out so tests can build an EconomyConfig without a .env file.
func LoadEconomyConfig() EconomyConfig {
	// A zero or negative peg would turn deposit/withdrawal conversions into
	// a division by zero.
	peg := getEnvAsInt64("USD_CENTS_PER_DGT", 1)
	if peg <= 0 {
		peg = 1
	}

	return EconomyConfig{
		TipBurnPercent: getEnvAsInt64("TIP_BURN_BPS", 200), // 2%

		TipCooldown: getEnvAsDuration("TIP_COOLDOWN", 60*time.Second),
		TipDailyCap: getEnvAsInt64("TIP_DAILY_CAP", 1000),

		RainCooldown:      getEnvAsDuration("RAIN_COOLDOWN", 10*time.Minute),
		RainDailyCap:      getEnvAsInt64("RAIN_DAILY_CAP", 5000),
		RainMaxRecipients: getEnvAsInt("RAIN_MAX_RECIPIENTS", 50),
		RainMinShare:      getEnvAsInt64("RAIN_MIN_SHARE", 20),

		WithdrawCooldown:   getEnvAsDuration("WITHDRAW_COOLDOWN", 24*time.Hour),
		WithdrawDailyCap:   getEnvAsInt64("WITHDRAW_DAILY_CAP", 10000),
		WithdrawMinUSD:     getEnvAsInt64("WITHDRAW_MIN_USD_CENTS", 500),
		WithdrawMaxUSD:     getEnvAsInt64("WITHDRAW_MAX_USD_CENTS", 100000),
		WithdrawFeePercent: getEnvAsInt64("WITHDRAW_FEE_BPS", 100), // 1%
		WithdrawFeeFlat:    getEnvAsInt64("WITHDRAW_FEE_FLAT", 10),

		USDCentsPerDGT: peg,

		GatewayTimeout: getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Minute),

		WatchInterval: getEnvAsDuration("SETTLEMENT_WATCH_INTERVAL", time.Minute),

		SettleRetries: getEnvAsInt("SETTLE_RETRIES", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
