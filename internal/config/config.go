package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables; a .env file in the working
// directory is loaded first when present and never overrides the process
// environment.
//
// Environment Variables:
// Telegram:
// - TELEGRAM_TOKEN: bot token (required)
// - WEBHOOK_URL: public webhook URL; empty selects long polling
// - WEBHOOK_PATH: path the webhook is served on (default: /webhook)
//
// HTTP:
// - HTTP_ADDR: listen address (default: 0.0.0.0:$PORT)
// - PORT: listen port when HTTP_ADDR is unset (default: 5000)
//
// Translation:
// - TRANSLATOR_PROVIDER: google, deepl or openai (default: google)
// - TRANSLATOR_API_KEY: API key (required for deepl and openai)
// - TRANSLATOR_API_URL: endpoint override
// - TRANSLATOR_MODEL: chat model for openai (default: gpt-4o-mini)
// - TRANSLATE_TIMEOUT: per request timeout in seconds (default: 15)
// - TRANSLATE_GRANULARITY: cue or line (default: cue)
// - CUE_CONCURRENCY: parallel requests per language (default: 4)
// - LANGUAGE_CONCURRENCY: languages translated in parallel (default: 3)
//
// Bot:
// - LANGUAGES: comma separated language codes offered in the menu
// - MAX_FILE_BYTES: upload size limit (default: 2 MiB)
// - WORKER_COUNT: translation jobs run in parallel (default: 2)
// - SESSION_TTL: minutes of inactivity before a session is dropped (default: 60)
// - SESSION_SWEEP_CRON: schedule of the session sweep (default: */10 * * * *)
//
// Logging:
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: also write logs to this file
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	HTTP       HTTPConfig       `json:"http"`
	Translator TranslatorConfig `json:"translator"`
	Bot        BotConfig        `json:"bot"`
	Session    SessionConfig    `json:"session"`
	Log        LogConfig        `json:"log"`
}

type TelegramConfig struct {
	Token       string `json:"-"`
	WebhookURL  string `json:"webhook_url"`
	WebhookPath string `json:"webhook_path"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type TranslatorConfig struct {
	Provider            string `json:"provider"`
	APIKey              string `json:"-"`
	APIURL              string `json:"api_url"`
	Model               string `json:"model"`
	Timeout             int    `json:"timeout"` // seconds
	Granularity         string `json:"granularity"`
	CueConcurrency      int    `json:"cue_concurrency"`
	LanguageConcurrency int    `json:"language_concurrency"`
}

type BotConfig struct {
	// Languages is empty when the built-in catalog should be used
	Languages    []string `json:"languages"`
	MaxFileBytes int64    `json:"max_file_bytes"`
	WorkerCount  int      `json:"worker_count"`
}

type SessionConfig struct {
	TTL       int    `json:"ttl"` // minutes
	SweepCron string `json:"sweep_cron"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	config := &Config{
		Telegram: TelegramConfig{
			Token:       getEnvString("TELEGRAM_TOKEN", ""),
			WebhookURL:  getEnvString("WEBHOOK_URL", ""),
			WebhookPath: getEnvString("WEBHOOK_PATH", "/webhook"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", "0.0.0.0:"+getEnvString("PORT", "5000")),
		},
		Translator: TranslatorConfig{
			Provider:            strings.ToLower(getEnvString("TRANSLATOR_PROVIDER", "google")),
			APIKey:              getEnvString("TRANSLATOR_API_KEY", ""),
			APIURL:              getEnvString("TRANSLATOR_API_URL", ""),
			Model:               getEnvString("TRANSLATOR_MODEL", "gpt-4o-mini"),
			Timeout:             getEnvInt("TRANSLATE_TIMEOUT", 15),
			Granularity:         strings.ToLower(getEnvString("TRANSLATE_GRANULARITY", "cue")),
			CueConcurrency:      getEnvInt("CUE_CONCURRENCY", 4),
			LanguageConcurrency: getEnvInt("LANGUAGE_CONCURRENCY", 3),
		},
		Bot: BotConfig{
			Languages:    getEnvList("LANGUAGES"),
			MaxFileBytes: int64(getEnvInt("MAX_FILE_BYTES", 2<<20)),
			WorkerCount:  getEnvInt("WORKER_COUNT", 2),
		},
		Session: SessionConfig{
			TTL:       getEnvInt("SESSION_TTL", 60),
			SweepCron: getEnvString("SESSION_SWEEP_CRON", "*/10 * * * *"),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info("Config: provider=%s granularity=%s webhook=%t addr=%s workers=%d",
		config.Translator.Provider, config.Translator.Granularity, config.WebhookMode(), config.HTTP.Addr, config.Bot.WorkerCount)
	return config, nil
}

// WebhookMode reports whether updates arrive by webhook instead of polling
func (c *Config) WebhookMode() bool {
	return c.Telegram.WebhookURL != ""
}

func (c *Config) TranslateTimeout() time.Duration {
	return time.Duration(c.Translator.Timeout) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTL) * time.Minute
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return configError("TELEGRAM_TOKEN is required")
	}
	if c.WebhookMode() {
		u, err := url.Parse(c.Telegram.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return configError("WEBHOOK_URL must be an absolute https URL").WithContext("value", c.Telegram.WebhookURL)
		}
	}
	if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
		return configError("WEBHOOK_PATH must start with /").WithContext("value", c.Telegram.WebhookPath)
	}

	switch c.Translator.Provider {
	case "google":
	case "deepl", "openai":
		if c.Translator.APIKey == "" {
			return configError("TRANSLATOR_API_KEY is required").WithContext("provider", c.Translator.Provider)
		}
	default:
		return configError("unknown TRANSLATOR_PROVIDER").WithContext("value", c.Translator.Provider)
	}

	if c.Translator.Granularity != "cue" && c.Translator.Granularity != "line" {
		return configError("TRANSLATE_GRANULARITY must be cue or line").WithContext("value", c.Translator.Granularity)
	}

	positive := []struct {
		name  string
		value int64
	}{
		{"TRANSLATE_TIMEOUT", int64(c.Translator.Timeout)},
		{"CUE_CONCURRENCY", int64(c.Translator.CueConcurrency)},
		{"LANGUAGE_CONCURRENCY", int64(c.Translator.LanguageConcurrency)},
		{"WORKER_COUNT", int64(c.Bot.WorkerCount)},
		{"MAX_FILE_BYTES", c.Bot.MaxFileBytes},
		{"SESSION_TTL", int64(c.Session.TTL)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return configError(p.name+" must be positive").WithContext("value", p.value)
		}
	}

	if _, err := cron.ParseStandard(c.Session.SweepCron); err != nil {
		return apperr.Wrap(err, apperr.ErrConfig, "invalid SESSION_SWEEP_CRON").WithContext("value", c.Session.SweepCron)
	}
	return nil
}

func configError(msg string) *apperr.Error {
	return apperr.New(apperr.ErrConfig, msg)
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return apperr.Wrap(err, apperr.ErrConfig, "failed to load env file").WithContext("file", path)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var ret []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
