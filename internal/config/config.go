package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream data sources.
	QueryTimeout         time.Duration
	ForecastHorizonHours int
	MarineURL            string
	ForecastURL          string
	OceanEnabled         bool

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Audit sinks. Each is enabled by setting its destination.
	AuditS3Bucket   string
	AuditS3Prefix   string
	AWSRegion       string
	KafkaBrokers    []string
	KafkaAuditTopic string

	OpenAIAPIKey string
	OpenAIModel  string

	TelegramBotToken string
	TelegramChatID   string

	MonitorSchedule  string
	MonitorWatchlist []WatchTarget
	MonitorMinLevel  string
}

// WatchTarget is one named coordinate the monitor re-assesses on schedule.
type WatchTarget struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	queryTimeout, err := parseDuration("QUERY_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	horizon, err := strconv.Atoi(sharedcfg.EnvOrDefault("FORECAST_HORIZON_HOURS", "24"))
	if err != nil || horizon < 1 || horizon > 168 {
		return nil, errors.New("invalid FORECAST_HORIZON_HOURS: must be 1-168")
	}

	watchlist, err := ParseWatchlist(os.Getenv("MONITOR_WATCHLIST"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONITOR_WATCHLIST: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		QueryTimeout:         queryTimeout,
		ForecastHorizonHours: horizon,
		MarineURL:            sharedcfg.EnvOrDefault("OPEN_METEO_MARINE_URL", "https://marine-api.open-meteo.com/v1/marine"),
		ForecastURL:          sharedcfg.EnvOrDefault("OPEN_METEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		OceanEnabled:         sharedcfg.EnvOrDefault("OCEAN_ENABLED", "true") == "true",

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		AuditS3Bucket:   os.Getenv("AUDIT_S3_BUCKET"),
		AuditS3Prefix:   sharedcfg.EnvOrDefault("AUDIT_S3_PREFIX", "raw"),
		AWSRegion:       sharedcfg.EnvOrDefault("AWS_REGION", "us-east-1"),
		KafkaBrokers:    brokers,
		KafkaAuditTopic: sharedcfg.EnvOrDefault("KAFKA_AUDIT_TOPIC", "marine-observations"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4o"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		MonitorSchedule:  sharedcfg.EnvOrDefault("MONITOR_SCHEDULE", "@every 30m"),
		MonitorWatchlist: watchlist,
		MonitorMinLevel:  sharedcfg.EnvOrDefault("MONITOR_MIN_LEVEL", "WARNING"),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAuditTopic == "" {
		return nil, errors.New("KAFKA_AUDIT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if (cfg.TelegramBotToken == "") != (cfg.TelegramChatID == "") {
		return nil, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if len(cfg.MonitorWatchlist) > 0 && cfg.MonitorSchedule == "" {
		return nil, errors.New("MONITOR_SCHEDULE is required when MONITOR_WATCHLIST is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the Kafka audit sink is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// S3Enabled reports whether the S3 audit sink is configured.
func (c *Config) S3Enabled() bool { return c.AuditS3Bucket != "" }

// OpenAIEnabled reports whether alert paraphrasing is configured.
func (c *Config) OpenAIEnabled() bool { return c.OpenAIAPIKey != "" }

// TelegramEnabled reports whether alert notifications are configured.
func (c *Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }

// ParseWatchlist reads "name:lat:lon" entries separated by semicolons.
func ParseWatchlist(s string) ([]WatchTarget, error) {
	var targets []WatchTarget
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q: want name:lat:lon", item)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("entry %q: bad latitude", item)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("entry %q: bad longitude", item)
		}
		targets = append(targets, WatchTarget{Name: strings.TrimSpace(parts[0]), Latitude: lat, Longitude: lon})
	}
	return targets, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
