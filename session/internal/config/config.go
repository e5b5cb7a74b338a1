// Package config handles highlight session configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level session configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Page     PageConfig     `yaml:"page"`
	Style    StyleConfig    `yaml:"style"`
	Debounce DebounceConfig `yaml:"debounce"`
	EventLog EventLogConfig `yaml:"event_log"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	Headless        *bool         `yaml:"headless"` // default true
	Stealth         bool          `yaml:"stealth"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// PageConfig defines the page to highlight.
type PageConfig struct {
	URL       string           `yaml:"url"`
	Selectors []SelectorConfig `yaml:"selectors"`
}

// SelectorConfig is one CSS selector tracked by the session.
type SelectorConfig struct {
	ID  string `yaml:"id"`
	CSS string `yaml:"css"`
}

// StyleConfig controls marker appearance.
type StyleConfig struct {
	Primary         string  `yaml:"primary"`
	Secondary       string  `yaml:"secondary"`
	DashPattern     string  `yaml:"dash_pattern"`
	DashOffset      string  `yaml:"dash_offset"`
	Handles         bool    `yaml:"handles"`
	VisualThickness float64 `yaml:"visual_thickness"`
}

// DebounceConfig controls mutation batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// EventLogConfig controls the SQLite refresh event log. Empty path
// disables it.
type EventLogConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// HTTPConfig controls the control API listener. Empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults fills unset fields in place.
func (c *Config) Defaults() {
	if c.Browser.Headless == nil {
		v := true
		c.Browser.Headless = &v
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
}

// Validate reports configuration errors that have no sensible default.
func (c *Config) Validate() error {
	if c.Page.URL == "" {
		return fmt.Errorf("config: page.url is required")
	}
	seen := make(map[string]bool, len(c.Page.Selectors))
	for _, s := range c.Page.Selectors {
		if s.CSS == "" {
			return fmt.Errorf("config: selector %q has empty css", s.ID)
		}
		if s.ID != "" && seen[s.ID] {
			return fmt.Errorf("config: duplicate selector id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// LoadFile reads a YAML configuration file, applies defaults, and validates.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
