package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runger/tally/internal/storage"
)

// Config represents the tally configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Display DisplayConfig `yaml:"display"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`         // Database file (empty = default from paths)
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"` // SQLite busy timeout
	TagCacheSize  int    `yaml:"tag_cache_size"`  // Events whose tags are cached
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (empty = stderr)
}

// DisplayConfig holds how lists are ordered and rendered.
type DisplayConfig struct {
	QueueOrder      string `yaml:"queue_order"`      // id|name
	EventOrder      string `yaml:"event_order"`      // id_asc|id_desc|timestamp_asc|timestamp_desc
	SuggestionLimit int    `yaml:"suggestion_limit"` // Max tag suggestions shown
	TimeFormat      string `yaml:"time_format"`      // Go time layout for event timestamps
}

const (
	minSuggestionLimit = 1
	maxSuggestionLimit = 100
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath:        "", // Use default from paths
			BusyTimeoutMs: storage.DefaultBusyTimeoutMs,
			TagCacheSize:  storage.DefaultTagCacheSize,
		},
		Log: LogConfig{
			Level: "warn",
			File:  "",
		},
		Display: DefaultDisplayConfig(),
	}
}

// DefaultDisplayConfig returns the default display settings.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		QueueOrder:      storage.QueueOrderID.String(),
		EventOrder:      storage.EventOrderIDAsc.String(),
		SuggestionLimit: 10,
		TimeFormat:      "2006-01-02 15:04",
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	// Derive directory from path and ensure it exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DatabasePath returns the configured database path, or the default one.
func (c *Config) DatabasePath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return DefaultPaths().DatabaseFile()
}

// QueueOrder returns the parsed queue order.
func (c *Config) QueueOrder() storage.QueueOrder {
	order, _ := storage.ParseQueueOrder(c.Display.QueueOrder)
	return order
}

// EventOrder returns the parsed event order.
func (c *Config) EventOrder() storage.EventOrder {
	order, _ := storage.ParseEventOrder(c.Display.EventOrder)
	return order
}

// Get retrieves a configuration value by dot-separated key.
// For example: "storage.db_path" or "display.event_order"
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "storage":
		return c.getStorageField(field)
	case "log":
		return c.getLogField(field)
	case "display":
		return c.getDisplayField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "storage":
		return c.setStorageField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "display":
		return c.setDisplayField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getStorageField(field string) (string, error) {
	switch field {
	case "db_path":
		return c.Storage.DBPath, nil
	case "busy_timeout_ms":
		return strconv.Itoa(c.Storage.BusyTimeoutMs), nil
	case "tag_cache_size":
		return strconv.Itoa(c.Storage.TagCacheSize), nil
	default:
		return "", fmt.Errorf("unknown field: storage.%s", field)
	}
}

func (c *Config) setStorageField(field, value string) error {
	switch field {
	case "db_path":
		c.Storage.DBPath = value
	case "busy_timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for busy_timeout_ms: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid busy_timeout_ms: must be non-negative")
		}
		c.Storage.BusyTimeoutMs = v
	case "tag_cache_size":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for tag_cache_size: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid tag_cache_size: must be non-negative")
		}
		c.Storage.TagCacheSize = v
	default:
		return fmt.Errorf("unknown field: storage.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getDisplayField(field string) (string, error) {
	switch field {
	case "queue_order":
		return c.Display.QueueOrder, nil
	case "event_order":
		return c.Display.EventOrder, nil
	case "suggestion_limit":
		return strconv.Itoa(c.Display.SuggestionLimit), nil
	case "time_format":
		return c.Display.TimeFormat, nil
	default:
		return "", fmt.Errorf("unknown field: display.%s", field)
	}
}

func (c *Config) setDisplayField(field, value string) error {
	switch field {
	case "queue_order":
		if _, ok := storage.ParseQueueOrder(value); !ok {
			return fmt.Errorf("invalid queue_order: %s (must be one of %s)", value, strings.Join(storage.QueueOrderTokens(), ", "))
		}
		c.Display.QueueOrder = value
	case "event_order":
		if _, ok := storage.ParseEventOrder(value); !ok {
			return fmt.Errorf("invalid event_order: %s (must be one of %s)", value, strings.Join(storage.EventOrderTokens(), ", "))
		}
		c.Display.EventOrder = value
	case "suggestion_limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for suggestion_limit: %w", err)
		}
		if v < minSuggestionLimit || v > maxSuggestionLimit {
			return fmt.Errorf("invalid suggestion_limit: must be between %d and %d", minSuggestionLimit, maxSuggestionLimit)
		}
		c.Display.SuggestionLimit = v
	case "time_format":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("invalid time_format: must not be empty")
		}
		c.Display.TimeFormat = value
	default:
		return fmt.Errorf("unknown field: display.%s", field)
	}
	return nil
}

// Validate validates the configuration.
// Display values, including order tokens left over from older versions, are
// repaired by DisplayConfig.ValidateAndFix rather than rejected.
func (c *Config) Validate() error {
	if c.Storage.BusyTimeoutMs < 0 {
		return errors.New("storage.busy_timeout_ms must be >= 0")
	}

	if c.Storage.TagCacheSize < 0 {
		return errors.New("storage.tag_cache_size must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	// Never returns error; falls back to defaults with warnings
	c.Display.ValidateAndFix()

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TALLY_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("TALLY_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"storage.db_path",
		"storage.busy_timeout_ms",
		"storage.tag_cache_size",
		"log.level",
		"log.file",
		"display.queue_order",
		"display.event_order",
		"display.suggestion_limit",
		"display.time_format",
	}
}

// ValidationWarning represents a config validation warning.
type ValidationWarning struct {
	Field   string
	Message string
}

// ValidateAndFix validates display values.
// Invalid values are fixed by falling back to defaults or clamping.
// Returns a list of warnings for diagnostics. Validation never prevents startup.
func (d *DisplayConfig) ValidateAndFix() []ValidationWarning {
	defaults := DefaultDisplayConfig()
	var warnings []ValidationWarning

	warn := func(field, msg string) {
		w := ValidationWarning{Field: field, Message: msg}
		warnings = append(warnings, w)
		slog.Warn("config: display."+field+": "+msg, "field", "display."+field)
	}

	if _, ok := storage.ParseQueueOrder(d.QueueOrder); !ok {
		warn("queue_order", fmt.Sprintf("unknown order %q; falling back to default %s", d.QueueOrder, defaults.QueueOrder))
		d.QueueOrder = defaults.QueueOrder
	}

	if _, ok := storage.ParseEventOrder(d.EventOrder); !ok {
		warn("event_order", fmt.Sprintf("unknown order %q; falling back to default %s", d.EventOrder, defaults.EventOrder))
		d.EventOrder = defaults.EventOrder
	}

	if d.SuggestionLimit < minSuggestionLimit {
		warn("suggestion_limit", fmt.Sprintf("must be >= %d, got %d; falling back to default %d",
			minSuggestionLimit, d.SuggestionLimit, defaults.SuggestionLimit))
		d.SuggestionLimit = defaults.SuggestionLimit
	}
	if d.SuggestionLimit > maxSuggestionLimit {
		warn("suggestion_limit", fmt.Sprintf("must be <= %d, got %d; clamping", maxSuggestionLimit, d.SuggestionLimit))
		d.SuggestionLimit = maxSuggestionLimit
	}

	if strings.TrimSpace(d.TimeFormat) == "" {
		warn("time_format", fmt.Sprintf("empty; falling back to default %q", defaults.TimeFormat))
		d.TimeFormat = defaults.TimeFormat
	}

	return warnings
}
