package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deingipfel/touren-finder/pkg/filter"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WordPress WordPressConfig `mapstructure:"wordpress"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// PublicURL is the absolute base the loader script and manifest point at.
	// Empty means relative to the request host.
	PublicURL string `mapstructure:"public_url"`
}

// WordPressConfig describes the upstream REST API
type WordPressConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ParentID          int           `mapstructure:"parent_id"`
	PerPage           int           `mapstructure:"per_page"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
}

type CacheConfig struct {
	ToursTTL    time.Duration `mapstructure:"tours_ttl"`
	MediaDBPath string        `mapstructure:"media_db_path"`
}

// RedisConfig is optional; an empty URL keeps the tour cache in memory.
type RedisConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

type FilterConfig struct {
	MatchMode string `mapstructure:"match_mode"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml (optional) and applies TOUREN_* environment overrides
func Load() (*Config, error) {
	return LoadWith(viper.New(), ".", "./config")
}

// LoadWith loads configuration through the given viper instance, searching paths for config.yaml.
func LoadWith(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("TOUREN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with and normalises
// the match mode.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WordPress.BaseURL) == "" {
		return errors.New("wordpress.base_url must be set")
	}
	if c.WordPress.ParentID <= 0 {
		return fmt.Errorf("wordpress.parent_id must be positive, got %d", c.WordPress.ParentID)
	}
	if c.WordPress.PerPage < 1 || c.WordPress.PerPage > 100 {
		return fmt.Errorf("wordpress.per_page must be within 1..100, got %d", c.WordPress.PerPage)
	}
	mode, err := filter.ParseMatchMode(c.Filter.MatchMode)
	if err != nil {
		return fmt.Errorf("filter.match_mode must be contains or exact: %w", err)
	}
	c.Filter.MatchMode = string(mode)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "")

	v.SetDefault("wordpress.base_url", "https://deingipfel-outdoorverleih.de")
	v.SetDefault("wordpress.parent_id", 12472)
	v.SetDefault("wordpress.per_page", 100)
	v.SetDefault("wordpress.timeout", 30*time.Second)
	v.SetDefault("wordpress.retry_count", 2)
	v.SetDefault("wordpress.requests_per_second", 10)

	v.SetDefault("cache.tours_ttl", 5*time.Minute)
	v.SetDefault("cache.media_db_path", "./data/media.db")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key", "touren:collection")

	v.SetDefault("filter.match_mode", "contains")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "*/30 * * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
