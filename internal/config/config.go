package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the price relay.
type Config struct {
	// Telegram credentials and destination
	TelegramBotToken  string `mapstructure:"telegram_bot_token"`
	TelegramChannelID string `mapstructure:"telegram_channel_id"`
	ParseMode         string `mapstructure:"parse_mode"`

	// Base URLs for API endpoints (configurable for testing)
	CoinGeckoBaseURL string `mapstructure:"coingecko_base_url"`
	TelegramBaseURL  string `mapstructure:"telegram_base_url"`

	// Asset being relayed
	AssetID     string `mapstructure:"asset_id"`
	AssetSymbol string `mapstructure:"asset_symbol"`
	VsCurrency  string `mapstructure:"vs_currency"`

	// Timing
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

var envBindings = map[string]string{
	"telegram_bot_token":  "TELEGRAM_BOT_TOKEN",
	"telegram_channel_id": "TELEGRAM_CHANNEL_ID",
	"parse_mode":          "PARSE_MODE",
	"coingecko_base_url":  "COINGECKO_BASE_URL",
	"telegram_base_url":   "TELEGRAM_BASE_URL",
	"asset_id":            "ASSET_ID",
	"asset_symbol":        "ASSET_SYMBOL",
	"vs_currency":         "VS_CURRENCY",
	"update_interval":     "UPDATE_INTERVAL",
	"retry_delay":         "RETRY_DELAY",
	"request_timeout":     "REQUEST_TIMEOUT",
	"log_level":           "LOG_LEVEL",
	"metrics_addr":        "METRICS_ADDR",
}

// Load reads configuration from a .env file, environment variables and an
// optional config file. Environment variables take precedence over the file.
//
// Required environment variables:
//   - TELEGRAM_BOT_TOKEN
//   - TELEGRAM_CHANNEL_ID
//
// Everything else has a default, see setDefaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.paxgbot")
	_ = v.ReadInConfig()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parse_mode", "Markdown")
	v.SetDefault("coingecko_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("telegram_base_url", "https://api.telegram.org")
	v.SetDefault("asset_id", "pax-gold")
	v.SetDefault("asset_symbol", "PAXG")
	v.SetDefault("vs_currency", "usd")
	v.SetDefault("update_interval", "5m")
	v.SetDefault("retry_delay", "1m")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
}

func (c *Config) validate() error {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.TelegramChannelID == "" {
		missing = append(missing, "TELEGRAM_CHANNEL_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	for name, d := range map[string]time.Duration{
		"UPDATE_INTERVAL": c.UpdateInterval,
		"RETRY_DELAY":     c.RetryDelay,
		"REQUEST_TIMEOUT": c.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %s", name, d)
		}
	}

	return nil
}
