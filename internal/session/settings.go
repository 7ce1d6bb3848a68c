package session

import (
	"time"

	"github.com/xk9labs/pagepilot/internal/config"
)

// Settings is the launch configuration of a session. Per-call argument
// overrides are merged over the process defaults before Acquire sees them.
type Settings struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	ProxyURL       string
	Args           []string
	LaunchTimeout  time.Duration
}

// SettingsFromConfig maps the process browser defaults into Settings.
func SettingsFromConfig(cfg config.BrowserConfig) Settings {
	return Settings{
		Headless:       cfg.Headless,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		UserAgent:      cfg.UserAgent,
		ProxyURL:       cfg.ProxyURL,
		Args:           cfg.Args,
		LaunchTimeout:  cfg.LaunchTimeout,
	}
}

// Compatible reports whether a session launched with s can serve a call
// requesting other. Only launch-relevant options participate: a different
// timeout never forces a relaunch.
func (s Settings) Compatible(other Settings) bool {
	return s.Headless == other.Headless &&
		s.ViewportWidth == other.ViewportWidth &&
		s.ViewportHeight == other.ViewportHeight &&
		s.UserAgent == other.UserAgent &&
		s.ProxyURL == other.ProxyURL
}
