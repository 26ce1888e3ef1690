package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Default upstream dataset locations.
const (
	DefaultEventsURL = "https://images.parkrun.com/events.json"
	DefaultStopsURL  = "https://opendata.transport.vic.gov.au/dataset/6d36dfd9-8693-4552-8a03-05eb29a391fd/resource/afa7b823-0c8b-47a1-bc40-ada565f684c7/download/public_transport_stops.geojson"
)

// Config holds the full application configuration.
type Config struct {
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	View   ViewConfig   `yaml:"view" mapstructure:"view"`
	Locate LocateConfig `yaml:"locate" mapstructure:"locate"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates the upstream datasets.
type SourceConfig struct {
	EventsURL string `yaml:"events_url" mapstructure:"events_url"`
	StopsURL  string `yaml:"stops_url" mapstructure:"stops_url"`
	// CORSProxy, when set, is prefixed to the escaped stops URL.
	CORSProxy string `yaml:"cors_proxy" mapstructure:"cors_proxy"`
}

// StopsEndpoint returns the URL the stops dataset is fetched from.
func (s SourceConfig) StopsEndpoint() string {
	if s.CORSProxy == "" {
		return s.StopsURL
	}
	return s.CORSProxy + url.QueryEscape(s.StopsURL)
}

// CacheConfig configures the persistent dataset cache.
type CacheConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	Path            string `yaml:"path" mapstructure:"path"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours        int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxEntryBytes   int    `yaml:"max_entry_bytes" mapstructure:"max_entry_bytes"`
	RefreshSchedule string `yaml:"refresh_schedule" mapstructure:"refresh_schedule"`
}

// TTL returns the freshness window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// DSN returns the connection string for the configured driver.
func (c CacheConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.DatabaseURL
	}
	return c.Path
}

// FetchConfig configures the HTTP client used for dataset downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`

	// Breaker settings apply to the long-running server only.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ViewConfig holds the initial event list settings.
type ViewConfig struct {
	RadiusKM  float64  `yaml:"radius_km" mapstructure:"radius_km"`
	Modes     []string `yaml:"modes" mapstructure:"modes"`
	SortBy    string   `yaml:"sort_by" mapstructure:"sort_by"`
	SortOrder string   `yaml:"sort_order" mapstructure:"sort_order"`
}

// LocateConfig bounds a geolocation request.
type LocateConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAgeSecs  int `yaml:"max_age_secs" mapstructure:"max_age_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARKRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.events_url", DefaultEventsURL)
	v.SetDefault("source.stops_url", DefaultStopsURL)
	v.SetDefault("source.cors_proxy", "")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "data/cache.db")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.ttl_hours", 168)
	v.SetDefault("cache.max_entry_bytes", 5*1024*1024)
	v.SetDefault("cache.refresh_schedule", "@daily")
	v.SetDefault("fetch.user_agent", "parkrun-transit/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 1)
	v.SetDefault("fetch.rate_per_sec", 5)
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_reset_secs", 30)
	v.SetDefault("view.radius_km", 1.0)
	v.SetDefault("view.modes", []string{"METRO TRAIN", "REGIONAL TRAIN", "METRO TRAM", "METRO BUS"})
	v.SetDefault("view.sort_by", "nearest-stop")
	v.SetDefault("view.sort_order", "asc")
	v.SetDefault("locate.timeout_secs", 10)
	v.SetDefault("locate.max_age_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
