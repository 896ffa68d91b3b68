// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/souq-assist/internal/util"
)

// CurrentVersion is written into newly created config files.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete souq-assist configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Platform chat endpoint
	API APIConfig `toml:"api" json:"api"`

	// Saved session identity
	Session SessionConfig `toml:"session" json:"session"`

	// Conversation history database
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Local fixture endpoint (souq-assist serve)
	Server ServerConfig `toml:"server" json:"server"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig describes the platform chat endpoint.
type APIConfig struct {
	// BaseURL is the platform origin, e.g. https://souq.example
	BaseURL string `toml:"base_url" json:"base_url"`
	// ChatPath is the streaming chat route
	ChatPath string `toml:"chat_path" json:"chat_path"`
	// HeaderTimeoutSecs bounds the wait for response headers
	HeaderTimeoutSecs int `toml:"header_timeout_secs" json:"header_timeout_secs"`
	// UserAgent sent with every request
	UserAgent string `toml:"user_agent" json:"user_agent"`
}

// SessionConfig describes where the session identity is kept.
type SessionConfig struct {
	// Path of the session file (empty = ~/.souq-assist/session.json)
	Path string `toml:"path" json:"path"`
}

// StorageConfig describes the conversation history database.
type StorageConfig struct {
	// Path of the SQLite database (empty = ~/.souq-assist/history.db)
	Path string `toml:"path" json:"path"`
	// AutoSave persists the transcript after every send
	AutoSave bool `toml:"auto_save" json:"auto_save"`
}

// ServerConfig describes the local fixture endpoint.
type ServerConfig struct {
	// Addr to listen on
	Addr string `toml:"addr" json:"addr"`
	// RatePerSecond is the sustained per-IP request rate (0 = unlimited)
	RatePerSecond float64 `toml:"rate_per_second" json:"rate_per_second"`
	// Burst is the per-IP burst size
	Burst int `toml:"burst" json:"burst"`
	// AllowedOrigins for CORS (empty = any)
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// ChunkDelayMs is the pause between streamed lines
	ChunkDelayMs int `toml:"chunk_delay_ms" json:"chunk_delay_ms"`
}

// LogConfig controls the logrus output.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format: text or json
	Format string `toml:"format" json:"format"`
	// File receives logs instead of stderr (the TUI always logs to a file)
	File string `toml:"file" json:"file"`
}

// UIConfig controls the terminal UI.
type UIConfig struct {
	// Theme: dark or light
	Theme string `toml:"theme" json:"theme"`
	// ShowToolResults renders tool result summaries under replies
	ShowToolResults bool `toml:"show_tool_results" json:"show_tool_results"`
	// Markdown renders assistant replies through glamour
	Markdown bool `toml:"markdown" json:"markdown"`
}

// HeaderTimeout returns the configured header timeout as a duration.
func (a APIConfig) HeaderTimeout() time.Duration {
	return time.Duration(a.HeaderTimeoutSecs) * time.Second
}

// ChunkDelay returns the configured fixture chunk delay as a duration.
func (s ServerConfig) ChunkDelay() time.Duration {
	return time.Duration(s.ChunkDelayMs) * time.Millisecond
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:3000",
			ChatPath:          "/api/chat",
			HeaderTimeoutSecs: 30,
			UserAgent:         "souq-assist",
		},
		Storage: StorageConfig{
			AutoSave: true,
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:3000",
			RatePerSecond: 2,
			Burst:         5,
			ChunkDelayMs:  40,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		UI: UIConfig{
			Theme:           "dark",
			ShowToolResults: true,
			Markdown:        true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the souq-assist configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".souq-assist"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath returns the database path, resolving the default location.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// SessionPath returns the session file path, resolving the default location.
func (c *Config) SessionPath() (string, error) {
	if c.Session.Path != "" {
		return c.Session.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.souq-assist/config.toml, falling back to defaults when the
// file does not exist. Environment overrides are always applied.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file with full validation.
// Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# souq-assist configuration file\n")
	buf.WriteString("# Environment variables prefixed SOUQ_ override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host", c.API.BaseURL),
		})
	}
	if !strings.HasPrefix(c.API.ChatPath, "/") {
		errs = append(errs, ValidationError{
			Field:   "api.chat_path",
			Message: "must start with '/'",
		})
	}
	if c.API.HeaderTimeoutSecs < 1 || c.API.HeaderTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.header_timeout_secs",
			Message: fmt.Sprintf("%d out of range, must be 1-600", c.API.HeaderTimeoutSecs),
		})
	}

	if c.Server.RatePerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_per_second",
			Message: "must not be negative",
		})
	}
	if c.Server.RatePerSecond > 0 && c.Server.Burst < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.burst",
			Message: "must be at least 1 when rate limiting is enabled",
		})
	}
	if c.Server.ChunkDelayMs < 0 || c.Server.ChunkDelayMs > 5000 {
		errs = append(errs, ValidationError{
			Field:   "server.chunk_delay_ms",
			Message: fmt.Sprintf("%d out of range, must be 0-5000", c.Server.ChunkDelayMs),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be text or json", c.Log.Format),
		})
	}
	if t := strings.ToLower(c.UI.Theme); t != "dark" && t != "light" {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be dark or light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty fields with their default values.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.ChatPath == "" {
		c.API.ChatPath = d.API.ChatPath
	}
	if c.API.HeaderTimeoutSecs == 0 {
		c.API.HeaderTimeoutSecs = d.API.HeaderTimeoutSecs
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = d.API.UserAgent
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SOUQ_BASE_URL: overrides api.base_url
//   - SOUQ_CHAT_PATH: overrides api.chat_path
//   - SOUQ_SESSION_FILE: overrides session.path
//   - SOUQ_DB_PATH: overrides storage.path
//   - SOUQ_SERVER_ADDR: overrides server.addr
//   - SOUQ_LOG_LEVEL: overrides log.level
//   - SOUQ_LOG_FORMAT: overrides log.format
//   - SOUQ_LOG_FILE: overrides log.file
//   - SOUQ_NO_AUTOSAVE: set to "1" or "true" to disable storage.auto_save
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SOUQ_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SOUQ_CHAT_PATH"); v != "" {
		c.API.ChatPath = v
	}
	if v := os.Getenv("SOUQ_SESSION_FILE"); v != "" {
		c.Session.Path = v
	}
	if v := os.Getenv("SOUQ_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SOUQ_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SOUQ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SOUQ_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("SOUQ_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("SOUQ_NO_AUTOSAVE"); v != "" {
		c.Storage.AutoSave = !(v == "1" || strings.EqualFold(v, "true"))
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by its TOML key path (e.g. "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a configuration value by its TOML key path. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag equals name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.AllowedOrigins != nil {
		clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	}
	return &clone
}

// String returns an indented JSON rendering for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
