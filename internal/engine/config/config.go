package config

import (
	"time"

	"market-edge-engine/pkg/config"
)

// Scanner holds scan-orchestrator configuration. Decision thresholds live in
// the engine_settings table, not here; these are process-level knobs.
type Scanner struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	CoolDown        time.Duration `mapstructure:"cool_down"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	EstimateTimeout time.Duration `mapstructure:"estimate_timeout"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// PlatformAPI holds the endpoint configuration of one market source.
type PlatformAPI struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Research holds the news-research configuration for the estimator.
type Research struct {
	RSSBaseURL  string        `mapstructure:"rss_base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	MaxArticles int           `mapstructure:"max_articles"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the engine service.
type Config struct {
	App        config.App      `mapstructure:"app"`
	Logger     config.Logger   `mapstructure:"logger"`
	Database   config.Database `mapstructure:"database"`
	Redis      config.Redis    `mapstructure:"redis"`
	API        config.API      `mapstructure:"api"`
	Scanner    Scanner         `mapstructure:"scanner"`
	Gemini     Gemini          `mapstructure:"gemini"`
	Polymarket PlatformAPI     `mapstructure:"polymarket"`
	Kalshi     PlatformAPI     `mapstructure:"kalshi"`
	Research   Research        `mapstructure:"research"`
	Telegram   Telegram        `mapstructure:"telegram"`
}

// Load loads the engine configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
