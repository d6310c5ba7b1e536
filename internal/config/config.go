package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/pkg/icron"
	"github.com/cometa-app/tscatalog/pkg/log"
	"github.com/joho/godotenv"
)

// Config holds the process configuration.
//
// Environment Variables:
// Catalog:
// - CATALOG_DIR: directory holding <prefix>_<locale>.ts files (default: ./translations)
// - CATALOG_PREFIX: catalog file prefix (default: Cometa)
// - SOURCE_LANGUAGE: language the UI strings are written in (default: Русский)
// - LOAD_CONCURRENCY: parallel catalog parses when loading a directory (default: 4)
//
// System:
// - DATA_DIR: directory for the database and settings (default: ./data)
// - SETTINGS_FILE: settings JSON path (default: $DATA_DIR/settings.json)
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - ENV_FILE: dotenv file read before the variables above (default: .env)
//
// Serving:
// - HTTP_ADDR: listen address (default: :8080)
// - RELOAD_CRON: catalog reload and miss flush schedule (default: */5 * * * *)
type Config struct {
	Catalog CatalogConfig `json:"catalog"`
	System  SystemConfig  `json:"system"`
	HTTP    HTTPConfig    `json:"http"`
	Reload  ReloadConfig  `json:"reload"`
}

type CatalogConfig struct {
	Dir             string `json:"dir"`
	Prefix          string `json:"prefix"`
	SourceLanguage  string `json:"source_language"`
	LoadConcurrency int    `json:"load_concurrency"`
}

type SystemConfig struct {
	DataDir      string `json:"data_dir"`
	SettingsFile string `json:"settings_file"`
	LogLevel     string `json:"log_level"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type ReloadConfig struct {
	CronExpr string `json:"cron_expr"`
}

const dbFileName = "tscatalog.db"

// DBPath is the sqlite database inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, dbFileName)
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithCatalogDir(dir string) Option {
	return func(c *Config) {
		c.Catalog.Dir = dir
	}
}

func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.System.DataDir = dir
		c.System.SettingsFile = filepath.Join(dir, "settings.json")
	}
}

// NewFromEnv builds a Config from the environment, after loading ENV_FILE
// when it exists. Variables already set win over the dotenv file.
func NewFromEnv(opts ...Option) (*Config, error) {
	if err := loadEnvFile(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	dataDir := getEnvString("DATA_DIR", "./data")
	config := &Config{
		Catalog: CatalogConfig{
			Dir:             getEnvString("CATALOG_DIR", "./translations"),
			Prefix:          getEnvString("CATALOG_PREFIX", "Cometa"),
			SourceLanguage:  getEnvString("SOURCE_LANGUAGE", LanguageRussian),
			LoadConcurrency: getEnvInt("LOAD_CONCURRENCY", 4),
		},
		System: SystemConfig{
			DataDir:      dataDir,
			SettingsFile: getEnvString("SETTINGS_FILE", filepath.Join(dataDir, "settings.json")),
			LogLevel:     getEnvString("LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		Reload: ReloadConfig{
			CronExpr: getEnvString("RELOAD_CRON", "*/5 * * * *"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", *config)
	return config, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Catalog.Dir) == "" {
		return apperr.NewError(apperr.ErrConfig, "CATALOG_DIR is required")
	}
	if strings.TrimSpace(c.Catalog.Prefix) == "" {
		return apperr.NewError(apperr.ErrConfig, "CATALOG_PREFIX is required")
	}
	if _, ok := LocaleOf(c.Catalog.SourceLanguage); !ok {
		return apperr.NewError(apperr.ErrConfig, "unsupported SOURCE_LANGUAGE").
			WithContext("language", c.Catalog.SourceLanguage)
	}
	if c.Catalog.LoadConcurrency < 1 {
		return apperr.NewError(apperr.ErrConfig, "LOAD_CONCURRENCY must be at least 1")
	}
	if strings.TrimSpace(c.System.DataDir) == "" {
		return apperr.NewError(apperr.ErrConfig, "DATA_DIR is required")
	}
	if _, err := icron.Parse(c.Reload.CronExpr); err != nil {
		return apperr.WrapError(err, apperr.ErrConfig, "invalid RELOAD_CRON")
	}
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperr.WrapError(err, apperr.ErrConfig, "load env file").WithContext("path", path)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn("ignoring non-integer %s=%q", key, value)
	}
	return defaultValue
}

// CatalogPath is the catalog file for a display language, e.g.
// translations/Cometa_en_EN.ts for "English".
func (c *Config) CatalogPath(displayLanguage string) (string, error) {
	locale, ok := LocaleOf(displayLanguage)
	if !ok {
		return "", apperr.NewError(apperr.ErrConfig, "unsupported language").
			WithContext("language", displayLanguage)
	}
	return filepath.Join(c.Catalog.Dir, fmt.Sprintf("%s_%s.ts", c.Catalog.Prefix, locale)), nil
}
