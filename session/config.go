package session

import (
	"github.com/hazyhaar/domhighlight/session/internal/config"
)

// Config is the top-level session configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines the page to highlight.
type PageConfig = config.PageConfig

// SelectorConfig is one tracked CSS selector.
type SelectorConfig = config.SelectorConfig

// StyleConfig controls marker appearance.
type StyleConfig = config.StyleConfig

// DebounceConfig controls mutation batching.
type DebounceConfig = config.DebounceConfig

// EventLogConfig controls the SQLite refresh event log.
type EventLogConfig = config.EventLogConfig

// HTTPConfig controls the control API listener.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
