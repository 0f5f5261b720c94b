package config

import (
	"fmt"
	"time"
)

// Config holds price watcher configuration.
type Config struct {
	ProductsFile    string
	DBPath          string
	Timeout         time.Duration
	UserAgent       string
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	Interval        time.Duration
	MetricsAddr     string
	CacheSize       int
	Verbose         bool
}

// DefaultConfig returns conservative defaults suitable for cron-driven use.
func DefaultConfig() *Config {
	return &Config{
		ProductsFile:    "products.yaml",
		DBPath:          "price_history.db",
		Timeout:         20 * time.Second,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		MaxRetries:      2,
		RetryBackoff:    200 * time.Millisecond,
		RetryBackoffMax: 2 * time.Second,
		Interval:        0,
		MetricsAddr:     "",
		CacheSize:       64,
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ProductsFile == "" {
		return fmt.Errorf("products file cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval cannot be negative")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	return nil
}
