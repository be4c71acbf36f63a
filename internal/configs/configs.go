/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings come from environment variables; a .env file in the working directory is loaded first
when present. The edition (basic or pro) picks defaults for the feature switches and the text cap,
and every switch can still be overridden on its own.
*/
package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ryachat/internal/app/chat"
	"ryachat/internal/app/storage"
)

// Editions.
const (
	EditionBasic = "basic"
	EditionPro   = "pro"
)

const developmentJWTSecret = "ryachat_insecure_development_secret_change_me"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment   string
	Port          int
	LogLevel      string
	PowDifficulty int

	// Security Settings
	AllowedOrigins []string
	TokenMode      string
	JWTSecret      string

	// Chat Settings
	Edition               string
	Features              chat.Features
	MaxTextLength         int
	RateLimitWindow       time.Duration
	RateLimitMax          int
	MessageHistoryLimit   int
	PresenceResetInterval time.Duration
	SubscriberQueueSize   int

	// S3 Storage Settings (optional; image upload needs them)
	Storage storage.ServiceConfig
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ChatOptions converts the configuration into chat manager options.
func (c *AppConfig) ChatOptions() chat.Options {
	return chat.Options{
		HistoryLimit:          c.MessageHistoryLimit,
		RateWindow:            c.RateLimitWindow,
		RateMax:               c.RateLimitMax,
		MaxTextLength:         c.MaxTextLength,
		PresenceResetInterval: c.PresenceResetInterval,
		SubscriberQueueSize:   c.SubscriberQueueSize,
		TokenMode:             c.TokenMode,
		TokenSecret:           c.JWTSecret,
		Features:              c.Features,
	}
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = getString("ENVIRONMENT", "development")

	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	cfg.LogLevel = getString("LOG_LEVEL", "")

	if cfg.PowDifficulty, err = getInt("POW_DIFFICULTY", 0); err != nil {
		return nil, err
	}
	if cfg.PowDifficulty < 0 || cfg.PowDifficulty > 8 {
		return nil, fmt.Errorf("POW_DIFFICULTY must be between 0 and 8, got %d", cfg.PowDifficulty)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = getList("ALLOWED_ORIGINS")

	cfg.TokenMode = strings.ToLower(getString("TOKEN_MODE", chat.TokenModeSigned))
	if cfg.TokenMode != chat.TokenModeSigned && cfg.TokenMode != chat.TokenModeOpaque {
		return nil, fmt.Errorf("invalid TOKEN_MODE %q (want %q or %q)", cfg.TokenMode, chat.TokenModeSigned, chat.TokenModeOpaque)
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.TokenMode == chat.TokenModeSigned && cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.JWTSecret = developmentJWTSecret
	}

	// --- Chat Settings ---
	cfg.Edition = strings.ToLower(getString("EDITION", EditionBasic))

	var defaults chat.Options
	switch cfg.Edition {
	case EditionBasic:
		defaults = chat.BasicOptions()
	case EditionPro:
		defaults = chat.ProOptions()
	default:
		return nil, fmt.Errorf("invalid EDITION %q (want %q or %q)", cfg.Edition, EditionBasic, EditionPro)
	}

	features := defaults.Features
	if features.Images, err = getBool("FEATURE_IMAGES", features.Images); err != nil {
		return nil, err
	}
	if features.Search, err = getBool("FEATURE_SEARCH", features.Search); err != nil {
		return nil, err
	}
	if features.Live, err = getBool("FEATURE_LIVE", features.Live); err != nil {
		return nil, err
	}
	if features.Profiles, err = getBool("FEATURE_PROFILES", features.Profiles); err != nil {
		return nil, err
	}
	cfg.Features = features

	if cfg.MaxTextLength, err = getInt("MAX_TEXT_LENGTH", defaults.MaxTextLength); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", defaults.RateWindow); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getInt("RATE_LIMIT_MAX", defaults.RateMax); err != nil {
		return nil, err
	}
	if cfg.MessageHistoryLimit, err = getInt("MESSAGE_HISTORY_LIMIT", defaults.HistoryLimit); err != nil {
		return nil, err
	}
	if cfg.PresenceResetInterval, err = getDuration("PRESENCE_RESET_INTERVAL", defaults.PresenceResetInterval); err != nil {
		return nil, err
	}
	if cfg.SubscriberQueueSize, err = getInt("SUBSCRIBER_QUEUE_SIZE", defaults.SubscriberQueueSize); err != nil {
		return nil, err
	}

	if cfg.MaxTextLength < 0 || cfg.RateLimitMax <= 0 || cfg.MessageHistoryLimit <= 0 || cfg.SubscriberQueueSize <= 0 {
		return nil, errors.New("MAX_TEXT_LENGTH must be >= 0; RATE_LIMIT_MAX, MESSAGE_HISTORY_LIMIT and SUBSCRIBER_QUEUE_SIZE must be > 0")
	}
	if cfg.RateLimitWindow <= 0 || cfg.PresenceResetInterval <= 0 {
		return nil, errors.New("RATE_LIMIT_WINDOW and PRESENCE_RESET_INTERVAL must be positive durations")
	}

	// --- S3 Storage Settings ---
	cfg.Storage = storage.ServiceConfig{
		S3BucketName:      os.Getenv("S3_BUCKET_NAME"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          os.Getenv("S3_REGION"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		PublicBaseURL:     os.Getenv("S3_PUBLIC_BASE_URL"),
	}
	if (cfg.Storage.S3BucketName == "") != (cfg.Storage.S3Endpoint == "") {
		return nil, errors.New("S3_BUCKET_NAME and S3_ENDPOINT must be set together")
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go duration strings ("90s") or a bare number of milliseconds.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return d, nil
}

func getList(key string) []string {
	out := []string{}
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
