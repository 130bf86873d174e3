// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/storage"
	"github.com/jeranaias/lumen/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lumen configuration.
type Config struct {
	Provider ProviderConfig `toml:"provider" json:"provider"`
	Server   ServerConfig   `toml:"server" json:"server"`
	Client   ClientConfig   `toml:"client" json:"client"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Log      LogConfig      `toml:"log" json:"log"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// ProviderConfig selects the model backend.
type ProviderConfig struct {
	// Kind is one of "gemini", "openai", "ollama".
	Kind  string `toml:"kind" json:"kind"`
	Model string `toml:"model" json:"model"`
	// TitleModel is used for conversation titles. Empty means Model.
	TitleModel string `toml:"title_model" json:"title_model"`
	APIKey     string `toml:"api_key" json:"api_key"`
	// BaseURL overrides the backend endpoint (OpenAI-compatible servers, a
	// non-default Ollama host, or a Gemini proxy).
	BaseURL          string  `toml:"base_url" json:"base_url"`
	TitleTemperature float64 `toml:"title_temperature" json:"title_temperature"`
	TimeoutSecs      int     `toml:"timeout_secs" json:"timeout_secs"`
}

// ServerConfig configures `lumen serve`.
type ServerConfig struct {
	Listen       string   `toml:"listen" json:"listen"`
	MaxBodyBytes int64    `toml:"max_body_bytes" json:"max_body_bytes"`
	CORSOrigins  []string `toml:"cors_origins" json:"cors_origins"`
}

// ClientConfig configures how the chat front end reaches the model.
type ClientConfig struct {
	// Mode is "http" (talk to a lumen server) or "local" (in process).
	Mode      string `toml:"mode" json:"mode"`
	ServerURL string `toml:"server_url" json:"server_url"`
	// CancelOnDelete stops a streaming reply when its conversation is deleted.
	CancelOnDelete bool `toml:"cancel_on_delete" json:"cancel_on_delete"`
}

// StorageConfig selects where conversations are kept.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend" json:"backend"`
	// Path is a directory for the file backend, a database file for sqlite.
	// Empty means a default under ConfigDir.
	Path string `toml:"path" json:"path"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	// File, when set, receives log output instead of stderr.
	File string `toml:"file" json:"file"`
}

// UIConfig configures the terminal front end.
type UIConfig struct {
	// Markdown renders assistant replies with glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
}

const (
	ModeHTTP  = "http"
	ModeLocal = "local"
)

// =============================================================================
// DEFAULT CONFIG
// =============================================================================

// Default returns a Config with all defaults set.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Kind:             string(provider.KindGemini),
			Model:            provider.KindGemini.DefaultModel(),
			TitleTemperature: 0.2,
			TimeoutSecs:      60,
		},
		Server: ServerConfig{
			Listen:       "127.0.0.1:8787",
			MaxBodyBytes: 1 << 20,
		},
		Client: ClientConfig{
			Mode:      ModeLocal,
			ServerURL: "http://127.0.0.1:8787",
		},
		Storage: StorageConfig{
			Backend: string(storage.BackendFile),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the lumen configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lumen"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath returns the configured storage path, or the backend's default
// location under ConfigDir.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return storage.ExpandHome(c.Storage.Path), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == string(storage.BackendSQLite) {
		return filepath.Join(dir, "lumen.db"), nil
	}
	return filepath.Join(dir, "state"), nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.lumen/config.toml if it exists, otherwise uses defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	// Provider
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = defaults.Provider.Kind
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = provider.Kind(strings.ToLower(cfg.Provider.Kind)).DefaultModel()
	}
	if cfg.Provider.TitleTemperature == 0 {
		cfg.Provider.TitleTemperature = defaults.Provider.TitleTemperature
	}
	if cfg.Provider.TimeoutSecs == 0 {
		cfg.Provider.TimeoutSecs = defaults.Provider.TimeoutSecs
	}

	// Server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaults.Server.Listen
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}

	// Client
	if cfg.Client.Mode == "" {
		cfg.Client.Mode = defaults.Client.Mode
	}
	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = defaults.Client.ServerURL
	}

	// Storage
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# lumen configuration file\n")
	buf.WriteString("# Generated by lumen - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors if anything
// is wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Provider
	kind, err := provider.ParseKind(c.Provider.Kind)
	if err != nil {
		add("provider.kind", "invalid provider '%s', must be one of: gemini, openai, ollama", c.Provider.Kind)
	}
	if c.Provider.BaseURL != "" && !validHTTPURL(c.Provider.BaseURL) {
		add("provider.base_url", "invalid URL '%s'", c.Provider.BaseURL)
	}
	if kind == provider.KindOpenAI && c.Provider.APIKey == "" && c.Provider.BaseURL == "" {
		add("provider.api_key", "openai provider requires api_key or base_url")
	}
	if c.Provider.TitleTemperature < 0 || c.Provider.TitleTemperature > 2 {
		add("provider.title_temperature", "must be between 0 and 2, got %g", c.Provider.TitleTemperature)
	}
	if c.Provider.TimeoutSecs < 0 {
		add("provider.timeout_secs", "must not be negative")
	}

	// Server
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		add("server.listen", "invalid address '%s': %v", c.Server.Listen, err)
	}
	if c.Server.MaxBodyBytes < 0 {
		add("server.max_body_bytes", "must not be negative")
	}

	// Client
	switch strings.ToLower(c.Client.Mode) {
	case ModeHTTP, ModeLocal:
	default:
		add("client.mode", "invalid mode '%s', must be one of: http, local", c.Client.Mode)
	}
	if !validHTTPURL(c.Client.ServerURL) {
		add("client.server_url", "invalid URL '%s'", c.Client.ServerURL)
	}

	// Storage
	switch storage.Backend(c.Storage.Backend) {
	case storage.BackendFile, storage.BackendSQLite:
	default:
		add("storage.backend", "invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend)
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		add("log.level", "invalid level '%s'", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		add("log.format", "invalid format '%s', must be one of: console, json", c.Log.Format)
	}

	// UI
	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ProviderTimeout returns the provider timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LUMEN_API_KEY, then GEMINI_API_KEY: overrides provider.api_key
//   - LUMEN_PROVIDER: overrides provider.kind
//   - LUMEN_MODEL: overrides provider.model
//   - LUMEN_SERVER_URL: overrides client.server_url and selects http mode
//   - LUMEN_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("LUMEN_API_KEY"); key != "" {
		c.Provider.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Provider.APIKey == "" {
		c.Provider.APIKey = key
	}

	if kind := os.Getenv("LUMEN_PROVIDER"); kind != "" {
		prev := provider.Kind(strings.ToLower(c.Provider.Kind))
		if c.Provider.Model == "" || c.Provider.Model == prev.DefaultModel() {
			c.Provider.Model = provider.Kind(strings.ToLower(kind)).DefaultModel()
		}
		c.Provider.Kind = kind
	}

	if model := os.Getenv("LUMEN_MODEL"); model != "" {
		c.Provider.Model = model
	}

	if serverURL := os.Getenv("LUMEN_SERVER_URL"); serverURL != "" {
		c.Client.ServerURL = serverURL
		c.Client.Mode = ModeHTTP
	}

	if level := os.Getenv("LUMEN_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "provider.model").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "provider.model").
func (c *Config) Set(key string, value any) error {
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
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an arbitrary value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
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
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
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

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.CORSOrigins != nil {
		clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	return &clone
}

// String returns the config as JSON with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
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
// Loads configuration on first access unless SetGlobal ran first. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		globalConfigMu.Lock()
		defer globalConfigMu.Unlock()
		if globalConfig != nil {
			return
		}
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
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
