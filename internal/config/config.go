// Package config centralizes process-wide configuration. Values are loaded
// once at startup from defaults, an optional YAML file, and PAGEPILOT_*
// environment variables; per-call tool arguments may override the session
// and timeout settings at dispatch time.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds the session launch defaults. Each field can be
// overridden per call via tool arguments; a changed launch-relevant value
// forces a session relaunch.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	ProxyURL       string        `mapstructure:"proxy_url" yaml:"proxy_url"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// NetworkConfig holds timeout defaults and the api_request client settings.
type NetworkConfig struct {
	DefaultTimeout    time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	RateLimitRPS      float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst    int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// DiagnosticsConfig controls the console/network event buffer.
type DiagnosticsConfig struct {
	Capacity    int  `mapstructure:"capacity" yaml:"capacity"`
	ClearOnRead bool `mapstructure:"clear_on_read" yaml:"clear_on_read"`
}

// ServerConfig identifies the tool server to connecting agents.
type ServerConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Instructions string `mapstructure:"instructions" yaml:"instructions"`
}

// Config is the root of the configuration tree.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Network     NetworkConfig     `mapstructure:"network" yaml:"network"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagepilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.proxy_url", "")
	v.SetDefault("browser.launch_timeout", "60s")

	// -- Network --
	v.SetDefault("network.default_timeout", "30s")
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.ignore_tls_errors", false)
	v.SetDefault("network.rate_limit_rps", 10.0)
	v.SetDefault("network.rate_limit_burst", 5)
	v.SetDefault("network.max_body_bytes", 2*1024*1024)

	// -- Diagnostics --
	v.SetDefault("diagnostics.capacity", 1000)
	v.SetDefault("diagnostics.clear_on_read", false)

	// -- Server --
	v.SetDefault("server.name", "pagepilot")
	v.SetDefault("server.instructions", "Browser automation and HTTP API testing tools.")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
// Defaults must already have been applied via SetDefaults.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot operate under.
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser launch_timeout must be positive, got %s", c.Browser.LaunchTimeout)
	}
	if c.Browser.ProxyURL != "" {
		if _, err := url.Parse(c.Browser.ProxyURL); err != nil {
			return fmt.Errorf("invalid browser proxy_url %q: %w", c.Browser.ProxyURL, err)
		}
	}
	if c.Network.DefaultTimeout <= 0 {
		return fmt.Errorf("network default_timeout must be positive, got %s", c.Network.DefaultTimeout)
	}
	if c.Network.MaxBodyBytes <= 0 {
		return fmt.Errorf("network max_body_bytes must be positive, got %d", c.Network.MaxBodyBytes)
	}
	if c.Network.RateLimitRPS <= 0 {
		return fmt.Errorf("network rate_limit_rps must be positive, got %f", c.Network.RateLimitRPS)
	}
	if c.Diagnostics.Capacity <= 0 {
		return fmt.Errorf("diagnostics capacity must be positive, got %d", c.Diagnostics.Capacity)
	}
	return nil
}
