// Package app builds the shared components of the command-line tools from configuration.
package app

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/advisor"
	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/api/openai"
	"github.com/Alias1177/RiskAgent/internal/api/twelvedata"
	"github.com/Alias1177/RiskAgent/internal/config"
	"github.com/Alias1177/RiskAgent/internal/database"
	"github.com/Alias1177/RiskAgent/internal/notify"
	"github.com/Alias1177/RiskAgent/internal/trading/management"
	"github.com/Alias1177/RiskAgent/internal/trading/risk"
)

// SetupLogging configures the global logger
func SetupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// IndicatorParams returns the indicator periods from configuration
func IndicatorParams(cfg *config.Config) technical.Params {
	return technical.Params{
		ATRPeriod: cfg.ATRPeriod,
		ADXPeriod: cfg.ADXPeriod,
		RSIPeriod: cfg.RSIPeriod,
	}
}

// RiskConfig returns the pipeline settings from configuration
func RiskConfig(cfg *config.Config) risk.Config {
	return risk.Config{
		Indicators: IndicatorParams(cfg),
		Sizing: risk.SizingConfig{
			MinStopFraction: cfg.MinStopFraction,
			MaxLeverage:     cfg.MaxLeverage,
		},
		AdvisorTimeout: cfg.AdvisorTimeout,
	}
}

// NewRanker returns the LLM ranker when the advisor is enabled, nil otherwise
func NewRanker(cfg *config.Config) advisor.Ranker {
	if !cfg.AdvisorEnabled {
		return nil
	}
	client := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		Model:          cfg.OpenAIModel,
		RequestsPerSec: cfg.AdvisorRPS,
		MaxRetryTime:   cfg.AdvisorTimeout,
	})
	return advisor.NewLLMRanker(client)
}

// NewRiskManager builds the risk pipeline
func NewRiskManager(cfg *config.Config) *risk.Manager {
	return risk.NewManager(NewRanker(cfg), RiskConfig(cfg))
}

// NewTradeManager builds the open-trade rule engine
func NewTradeManager(cfg *config.Config) *management.Manager {
	return management.NewManager(IndicatorParams(cfg))
}

// NewCandleProvider returns the Twelve Data client
func NewCandleProvider(cfg *config.Config) *twelvedata.Client {
	return twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: 5,
	})
}

// OpenJournal connects to PostgreSQL when DB_PASSWORD is set and falls back to
// the in-memory journal otherwise. The returned func releases the connection.
func OpenJournal(cfg *config.Config) (database.Journal, func() error, error) {
	if cfg.DBPassword == "" {
		log.Warn().Msg("DB_PASSWORD not set, journal kept in memory")
		return database.NewMemoryJournal(), func() error { return nil }, nil
	}

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("Journal connected")
	return db, db.Close, nil
}

// NewNotifier returns the Telegram notifier when a token is configured
func NewNotifier(cfg *config.Config) (notify.Notifier, error) {
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		return notify.NewLog(), nil
	}
	return notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
}
