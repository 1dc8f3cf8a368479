// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Metadata  MetadataConfig
	Store     StoreConfig
	Server    ServerConfig
	POISource POISourceConfig
	Catalog   CatalogConfig
	Generate  GenerateConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json, pretty, or empty for auto
}

// MetadataConfig holds the data root for the database and search index.
type MetadataConfig struct {
	BasePath string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s
	IdleTimeout  time.Duration // default: 60s
	CORSOrigins  []string
}

// POISourceConfig configures the live place search.
type POISourceConfig struct {
	Enabled   bool
	BaseURL   string
	Key       string
	Secret    string        // signing secret; empty disables request signing
	Timeout   time.Duration // bound for one live lookup (default: 5s)
	RateLimit float64       // outbound requests per second
}

// CatalogConfig configures the fallback catalog.
type CatalogConfig struct {
	// OverridePath points at a JSON catalog merged over the embedded one. Watched for changes.
	OverridePath  string
	DefaultCity   string
	DefaultIntent string
}

// GenerateConfig limits generation requests.
type GenerateConfig struct {
	PerMinute int
	Burst     int
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("roadbook", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	metadataPath := fs.String("metadata-path", "", "Base path for database and search index")
	backend := fs.String("store", "", "Store backend (badger, sqlite)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins")

	poiEnabled := fs.String("poi-source", "", "Enable live POI lookup (default: false)")
	poiURL := fs.String("poi-url", "", "POI source base URL")
	poiTimeout := fs.String("poi-timeout", "", "Live POI lookup timeout (default: 5s)")

	catalogPath := fs.String("catalog", "", "Override fallback catalog JSON file")
	defaultCity := fs.String("default-city", "", "City used when the catalog has no entry (default: 上海)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Metadata: MetadataConfig{
			BasePath: getConfigValue(*metadataPath, "METADATA_PATH", ""),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getConfigValue(*backend, "STORE_BACKEND", BackendBadger)),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		POISource: POISourceConfig{
			Enabled:   getBoolConfigValue(*poiEnabled, "POI_SOURCE_ENABLED", false),
			BaseURL:   getConfigValue(*poiURL, "POI_SOURCE_URL", "https://apis.map.qq.com"),
			Key:       getConfigValue("", "POI_SOURCE_KEY", ""),
			Secret:    getConfigValue("", "POI_SOURCE_SECRET", ""),
			RateLimit: getFloatConfigValue("", "POI_SOURCE_RATE", 5),
		},
		Catalog: CatalogConfig{
			OverridePath:  getConfigValue(*catalogPath, "CATALOG_PATH", ""),
			DefaultCity:   getConfigValue(*defaultCity, "DEFAULT_CITY", "上海"),
			DefaultIntent: getConfigValue("", "DEFAULT_INTENT", "family"),
		},
		Generate: GenerateConfig{
			PerMinute: getIntConfigValue("", "GENERATE_RATE_LIMIT", 30),
			Burst:     getIntConfigValue("", "GENERATE_RATE_BURST", 5),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flagVal  string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.POISource.Timeout, *poiTimeout, "POI_SOURCE_TIMEOUT", "5s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagVal, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandMetadataPath(); err != nil {
		return nil, fmt.Errorf("invalid metadata path: %w", err)
	}

	if cfg.Catalog.OverridePath != "" {
		expanded, err := expandPath(cfg.Catalog.OverridePath, "")
		if err != nil {
			return nil, fmt.Errorf("invalid catalog path: %w", err)
		}
		cfg.Catalog.OverridePath = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Metadata.BasePath == "" {
		return errors.New("metadata base path cannot be empty after expansion")
	}

	if c.Store.Backend != BackendBadger && c.Store.Backend != BackendSQLite {
		return fmt.Errorf("invalid store backend: %s (must be badger or sqlite)", c.Store.Backend)
	}

	if c.POISource.Enabled {
		if c.POISource.BaseURL == "" {
			return errors.New("POI_SOURCE_URL is required when the poi source is enabled")
		}
		if c.POISource.Key == "" {
			return errors.New("POI_SOURCE_KEY is required when the poi source is enabled")
		}
		if c.POISource.Timeout <= 0 {
			return errors.New("POI_SOURCE_TIMEOUT must be positive")
		}
	}

	if strings.TrimSpace(c.Catalog.DefaultCity) == "" {
		return errors.New("DEFAULT_CITY cannot be empty")
	}

	if c.Generate.PerMinute <= 0 {
		return fmt.Errorf("invalid generate rate limit: %d", c.Generate.PerMinute)
	}

	return nil
}

// DatabasePath returns the store location for the configured backend.
func (c *Config) DatabasePath() string {
	if c.Store.Backend == BackendSQLite {
		return filepath.Join(c.Metadata.BasePath, "roadbook.db")
	}
	return filepath.Join(c.Metadata.BasePath, "db")
}

// SearchIndexPath returns the bleve index directory.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.Metadata.BasePath, "search")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandMetadataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Metadata.BasePath, filepath.Join(homeDir, ".roadbook"))
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
