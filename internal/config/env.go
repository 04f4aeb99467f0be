package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type envConfig struct {
	APP_PORT        string
	LOG_FILE_PATH   string
	LOG_LEVEL       string
	MAX_UPLOAD_SIZE string

	// Extraction
	KEY_COLUMN    string
	TRIM_HEADERS  bool
	PRESETS_FILE  string
	BATCH_WORKERS int

	// Comma separated list of run recorders: postgres, datastore, elastic.
	AUDIT_BACKENDS []string

	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_MAX_OPEN_CONNS    int
	DB_MAX_IDLE_CONNS    int
	DB_CONN_MAX_LIFETIME time.Duration

	GCP_PROJECT_ID string

	ES_URL   string
	ES_INDEX string
}

// DefaultEnvConfig holds the process configuration after LoadEnvConfig.
var DefaultEnvConfig = defaults()

func defaults() envConfig {
	return envConfig{
		APP_PORT:             "8080",
		LOG_LEVEL:            "info",
		MAX_UPLOAD_SIZE:      "32M",
		KEY_COLUMN:           "m/z",
		TRIM_HEADERS:         true,
		BATCH_WORKERS:        4,
		DB_PORT:              5432,
		DB_SSL_MODE:          "disable",
		DB_MAX_OPEN_CONNS:    10,
		DB_MAX_IDLE_CONNS:    5,
		DB_CONN_MAX_LIFETIME: 30 * time.Minute,
		ES_INDEX:             "extraction-runs",
	}
}

// LoadEnvConfig reads .env (if present) and the process environment into DefaultEnvConfig.
func LoadEnvConfig(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := fromEnv(os.Getenv)
	if err != nil {
		return err
	}
	DefaultEnvConfig = cfg
	return nil
}

func fromEnv(getenv func(string) string) (envConfig, error) {
	cfg := defaults()
	var err error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = fmt.Errorf("%s: %w", key, convErr)
				return
			}
			*dst = n
		}
	}

	str("APP_PORT", &cfg.APP_PORT)
	str("LOG_FILE_PATH", &cfg.LOG_FILE_PATH)
	str("LOG_LEVEL", &cfg.LOG_LEVEL)
	str("MAX_UPLOAD_SIZE", &cfg.MAX_UPLOAD_SIZE)
	// The key column is matched exactly, so it is not trimmed.
	if v := getenv("KEY_COLUMN"); v != "" {
		cfg.KEY_COLUMN = v
	}
	str("PRESETS_FILE", &cfg.PRESETS_FILE)
	num("BATCH_WORKERS", &cfg.BATCH_WORKERS)

	if v := strings.TrimSpace(getenv("TRIM_HEADERS")); v != "" {
		b, convErr := strconv.ParseBool(v)
		if convErr != nil {
			return cfg, fmt.Errorf("TRIM_HEADERS: %w", convErr)
		}
		cfg.TRIM_HEADERS = b
	}

	for _, b := range strings.Split(getenv("AUDIT_BACKENDS"), ",") {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			cfg.AUDIT_BACKENDS = append(cfg.AUDIT_BACKENDS, b)
		}
	}

	str("DB_HOST", &cfg.DB_HOST)
	num("DB_PORT", &cfg.DB_PORT)
	str("DB_USER", &cfg.DB_USER)
	str("DB_PASSWORD", &cfg.DB_PASSWORD)
	str("DB_NAME", &cfg.DB_NAME)
	str("DB_SSL_MODE", &cfg.DB_SSL_MODE)
	num("DB_MAX_OPEN_CONNS", &cfg.DB_MAX_OPEN_CONNS)
	num("DB_MAX_IDLE_CONNS", &cfg.DB_MAX_IDLE_CONNS)
	if v := strings.TrimSpace(getenv("DB_CONN_MAX_LIFETIME")); v != "" && err == nil {
		d, convErr := time.ParseDuration(v)
		if convErr != nil {
			return cfg, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", convErr)
		}
		cfg.DB_CONN_MAX_LIFETIME = d
	}

	str("GCP_PROJECT_ID", &cfg.GCP_PROJECT_ID)
	str("ES_URL", &cfg.ES_URL)
	str("ES_INDEX", &cfg.ES_INDEX)

	if err != nil {
		return cfg, err
	}
	if cfg.BATCH_WORKERS < 1 {
		cfg.BATCH_WORKERS = 1
	}
	return cfg, nil
}

// AuditEnabled reports whether the named run recorder was requested.
func (c envConfig) AuditEnabled(name string) bool {
	for _, b := range c.AUDIT_BACKENDS {
		if b == name {
			return true
		}
	}
	return false
}
