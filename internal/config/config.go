package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string
	Format string
}

// DatasetConfig names where the place dataset is loaded from. The first
// non-empty source wins: DatabaseURL, then SQLitePath, then Path.
type DatasetConfig struct {
	DatabaseURL string
	SQLitePath  string
	Path        string
}

// Config aggregates application-wide configuration values.
type Config struct {
	Port              string
	Dataset           DatasetConfig
	BatchSize         int
	HalfStarThreshold float64
	SearchDebounce    time.Duration
	Locale            string
	PhoneRegion       string
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	RateLimitQuery    RateLimitConfig
	Log               LogConfig
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", "")
	v.SetDefault("dataset_path", "data/places.json")
	v.SetDefault("batch_size", 30)
	v.SetDefault("half_star_threshold", 0.25)
	v.SetDefault("search_debounce", "250ms")
	v.SetDefault("locale", "en")
	v.SetDefault("phone_region", "IN")
	v.SetDefault("session_ttl", "30m")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("rate_limit_query", "20/sec")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	cfg := &Config{
		Port: v.GetString("port"),
		Dataset: DatasetConfig{
			DatabaseURL: strings.TrimSpace(v.GetString("database_url")),
			SQLitePath:  strings.TrimSpace(v.GetString("sqlite_path")),
			Path:        strings.TrimSpace(v.GetString("dataset_path")),
		},
		Locale:      v.GetString("locale"),
		PhoneRegion: strings.ToUpper(v.GetString("phone_region")),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
		},
	}

	cfg.BatchSize = v.GetInt("batch_size")
	if cfg.BatchSize <= 0 {
		return nil, eris.Errorf("config: invalid BATCH_SIZE %q", v.GetString("batch_size"))
	}
	cfg.HalfStarThreshold = v.GetFloat64("half_star_threshold")
	if math.IsNaN(cfg.HalfStarThreshold) || cfg.HalfStarThreshold <= 0 || cfg.HalfStarThreshold >= 1 {
		return nil, eris.Errorf("config: HALF_STAR_THRESHOLD must be within (0,1), got %q", v.GetString("half_star_threshold"))
	}

	// Zero is a valid debounce; parse errors are checked explicitly.
	debounce, err := cast.ToDurationE(v.Get("search_debounce"))
	if err != nil || debounce < 0 {
		return nil, eris.Errorf("config: invalid SEARCH_DEBOUNCE %q", v.GetString("search_debounce"))
	}
	cfg.SearchDebounce = debounce

	cfg.SessionTTL = v.GetDuration("session_ttl")
	cfg.SweepInterval = v.GetDuration("sweep_interval")
	if cfg.SessionTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, eris.New("config: SESSION_TTL and SWEEP_INTERVAL must be positive durations")
	}

	rl, err := parseRateLimit(v.GetString("rate_limit_query"))
	if err != nil {
		return nil, eris.Wrap(err, "config: invalid RATE_LIMIT_QUERY value")
	}
	cfg.RateLimitQuery = rl

	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		return nil, eris.Errorf("config: LOG_FORMAT must be json or console, got %q", cfg.Log.Format)
	}

	return cfg, nil
}

// InitLogger initializes the global zap logger and returns it.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return logger, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}
