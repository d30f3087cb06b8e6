package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Market data
	TwelveAPIKey   string `env:"TWELVE_API_KEY" envDefault:"-"`
	Symbol         string `env:"SYMBOL" envDefault:"EUR/USD"`
	Interval       string `env:"INTERVAL" envDefault:"1h"`
	CandleCount    int    `env:"CANDLE_COUNT" envDefault:"100"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds

	// Indicators
	ATRPeriod int `env:"ATR_PERIOD" envDefault:"14"`
	ADXPeriod int `env:"ADX_PERIOD" envDefault:"14"`
	RSIPeriod int `env:"RSI_PERIOD" envDefault:"14"`

	// Account and sizing
	AccountBalance  float64 `env:"ACCOUNT_BALANCE" envDefault:"10000"`
	RiskPercentage  float64 `env:"RISK_PERCENTAGE" envDefault:"1"`
	MaxLeverage     float64 `env:"MAX_LEVERAGE" envDefault:"30"`
	MinStopFraction float64 `env:"MIN_STOP_FRACTION" envDefault:"0.0001"`

	// Advisory oracle
	AdvisorEnabled bool          `env:"ADVISOR_ENABLED" envDefault:"false"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY" envDefault:"-"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AdvisorTimeout time.Duration `env:"ADVISOR_TIMEOUT" envDefault:"5"` // seconds
	AdvisorRPS     int           `env:"ADVISOR_RPS" envDefault:"2"`

	// HTTP API
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Journal
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"-"`
	DBName     string `env:"DB_NAME" envDefault:"riskagent"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Notifications
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:"-"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`

	MonitorInterval time.Duration `env:"MONITOR_INTERVAL" envDefault:"60"` // seconds
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.Symbol = getEnvWithDefault("SYMBOL", "EUR/USD")
	cfg.Interval = getEnvWithDefault("INTERVAL", "1h")
	cfg.CandleCount = getEnvIntWithDefault("CANDLE_COUNT", 100)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)

	cfg.ATRPeriod = getEnvIntWithDefault("ATR_PERIOD", 14)
	cfg.ADXPeriod = getEnvIntWithDefault("ADX_PERIOD", 14)
	cfg.RSIPeriod = getEnvIntWithDefault("RSI_PERIOD", 14)

	cfg.AccountBalance = getEnvFloatWithDefault("ACCOUNT_BALANCE", 10000)
	cfg.RiskPercentage = getEnvFloatWithDefault("RISK_PERCENTAGE", 1)
	cfg.MaxLeverage = getEnvFloatWithDefault("MAX_LEVERAGE", 30)
	cfg.MinStopFraction = getEnvFloatWithDefault("MIN_STOP_FRACTION", 0.0001)

	cfg.AdvisorEnabled = getEnvBoolWithDefault("ADVISOR_ENABLED", false)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.AdvisorTimeout = time.Duration(getEnvIntWithDefault("ADVISOR_TIMEOUT", 5)) * time.Second
	cfg.AdvisorRPS = getEnvIntWithDefault("ADVISOR_RPS", 2)

	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")

	cfg.DBHost = getEnvWithDefault("DB_HOST", "localhost")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "riskagent")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	cfg.MonitorInterval = time.Duration(getEnvIntWithDefault("MONITOR_INTERVAL", 60)) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.CandleCount < 2 {
		errs = append(errs, fmt.Errorf("CANDLE_COUNT must be at least 2, got %d", c.CandleCount))
	}
	if c.ATRPeriod <= 0 || c.ADXPeriod <= 0 || c.RSIPeriod <= 0 {
		errs = append(errs, errors.New("indicator periods must be positive"))
	}
	if c.AccountBalance <= 0 {
		errs = append(errs, fmt.Errorf("ACCOUNT_BALANCE must be positive, got %v", c.AccountBalance))
	}
	if c.RiskPercentage <= 0 || c.RiskPercentage > 100 {
		errs = append(errs, fmt.Errorf("RISK_PERCENTAGE must be in (0, 100], got %v", c.RiskPercentage))
	}
	if c.MaxLeverage < 0 {
		errs = append(errs, fmt.Errorf("MAX_LEVERAGE must not be negative, got %v", c.MaxLeverage))
	}
	if c.MinStopFraction < 0 || c.MinStopFraction >= 1 {
		errs = append(errs, fmt.Errorf("MIN_STOP_FRACTION must be in [0, 1), got %v", c.MinStopFraction))
	}
	if c.AdvisorEnabled && c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("ADVISOR_ENABLED requires OPENAI_API_KEY"))
	}
	if c.AdvisorTimeout <= 0 {
		errs = append(errs, errors.New("ADVISOR_TIMEOUT must be positive"))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, errors.New("MONITOR_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
