package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Quote struct {
		Source        string `yaml:"source"` // "mock", "broker", "stream"
		BrokerBaseURL string `yaml:"broker_base_url"`
		BrokerAPIKey  string `yaml:"broker_api_key"`
		StreamURL     string `yaml:"stream_url"`
		StreamAPIKey  string `yaml:"stream_api_key"`
	} `yaml:"quote"`
	Poll struct {
		AlertIntervalSec     int `yaml:"alert_interval_sec"`
		WatchlistIntervalSec int `yaml:"watchlist_interval_sec"`
		BrokerSyncDelaySec   int `yaml:"broker_sync_delay_sec"`
	} `yaml:"poll"`
	Watchlist struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"watchlist"`
	Alerts struct {
		CleanupCron   string `yaml:"cleanup_cron"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"alerts"`
	Notifications struct {
		Desktop string `yaml:"desktop"` // "granted", "denied", "default"
	} `yaml:"notifications"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("QUOTE_SOURCE"); v != "" {
		cfg.Quote.Source = v
	}
	if v := os.Getenv("BROKER_BASE_URL"); v != "" {
		cfg.Quote.BrokerBaseURL = v
	}
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		cfg.Quote.BrokerAPIKey = v
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		cfg.Quote.StreamURL = v
	}
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		cfg.Quote.StreamAPIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("WATCHLIST_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Watchlist.PageSize = n
		}
	}

	// Defaults
	if cfg.Quote.Source == "" {
		cfg.Quote.Source = "mock"
	}
	if cfg.Poll.AlertIntervalSec == 0 {
		cfg.Poll.AlertIntervalSec = 60
	}
	if cfg.Poll.WatchlistIntervalSec == 0 {
		cfg.Poll.WatchlistIntervalSec = 30
	}
	if cfg.Poll.BrokerSyncDelaySec == 0 {
		cfg.Poll.BrokerSyncDelaySec = 3
	}
	if cfg.Watchlist.PageSize == 0 {
		cfg.Watchlist.PageSize = 25
	}
	if cfg.Alerts.CleanupCron == "" {
		cfg.Alerts.CleanupCron = "0 0 3 * * *"
	}
	if cfg.Alerts.RetentionDays == 0 {
		cfg.Alerts.RetentionDays = 30
	}
	if cfg.Notifications.Desktop == "" {
		cfg.Notifications.Desktop = "default"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stockwatch.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Quote.Source {
	case "mock":
	case "broker":
		if c.Quote.BrokerBaseURL == "" {
			return fmt.Errorf("quote.broker_base_url is required for broker source")
		}
	case "stream":
		if c.Quote.StreamURL == "" {
			return fmt.Errorf("quote.stream_url is required for stream source")
		}
	default:
		return fmt.Errorf("quote.source must be mock, broker or stream, got %q", c.Quote.Source)
	}
	if c.Poll.AlertIntervalSec <= 0 {
		return fmt.Errorf("poll.alert_interval_sec must be positive")
	}
	if c.Poll.WatchlistIntervalSec <= 0 {
		return fmt.Errorf("poll.watchlist_interval_sec must be positive")
	}
	if c.Watchlist.PageSize <= 0 {
		return fmt.Errorf("watchlist.page_size must be positive")
	}
	switch c.Notifications.Desktop {
	case "granted", "denied", "default":
	default:
		return fmt.Errorf("notifications.desktop must be granted, denied or default, got %q", c.Notifications.Desktop)
	}
	return nil
}

// AlertInterval returns the alert poll interval as a duration.
func (c *Config) AlertInterval() time.Duration {
	return time.Duration(c.Poll.AlertIntervalSec) * time.Second
}

// WatchlistInterval returns the watchlist refresh interval as a duration.
func (c *Config) WatchlistInterval() time.Duration {
	return time.Duration(c.Poll.WatchlistIntervalSec) * time.Second
}

// BrokerSyncDelay returns the post-sync re-fetch delay as a duration.
func (c *Config) BrokerSyncDelay() time.Duration {
	return time.Duration(c.Poll.BrokerSyncDelaySec) * time.Second
}
