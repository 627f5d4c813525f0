package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Server holds settings shared by every HTTP service.
type Server struct {
	Port             string `yaml:"port"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	IdleTimeoutSecs  int    `yaml:"idle_timeout_secs"`
	LogLevel         string `yaml:"log_level"`
}

// Catalog captures the catalog service configuration.
type Catalog struct {
	Server            `yaml:",inline"`
	DBURL             string `yaml:"db_url"`
	DBMaxConns        int    `yaml:"db_max_conns"`
	DBMinConns        int    `yaml:"db_min_conns"`
	DBMaxIdleSecs     int    `yaml:"db_max_conn_idle_secs"`
	DBMaxLifeSecs     int    `yaml:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs int    `yaml:"db_conn_timeout_secs"`
	DBStatementCache  int    `yaml:"db_statement_cache_capacity"`
}

// Oscars captures the orchestration service configuration.
type Oscars struct {
	Server             `yaml:",inline"`
	CatalogURL         string `yaml:"catalog_url"`
	CatalogTimeoutSecs int    `yaml:"catalog_timeout_secs"`
	CatalogPageSize    int    `yaml:"catalog_page_size"`
	NotifyDelayMillis  int    `yaml:"notify_delay_ms"`
	NotifyWorkers      int    `yaml:"notify_workers"`
	NotifyQueueSize    int    `yaml:"notify_queue_size"`
	NotifyTimeoutSecs  int    `yaml:"notify_timeout_secs"`
}

func defaultServer(port string) Server {
	return Server{
		Port:             port,
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
		LogLevel:         "info",
	}
}

// LoadCatalog reads catalog configuration from defaults, the optional
// CONFIG_FILE and environment variables, in that order of precedence.
func LoadCatalog() (Catalog, error) {
	cfg := Catalog{
		Server:            defaultServer("8081"),
		DBMaxConns:        20,
		DBMinConns:        2,
		DBMaxIdleSecs:     300,
		DBMaxLifeSecs:     3600,
		DBConnTimeoutSecs: 10,
		DBStatementCache:  256,
	}
	if err := loadFile(&cfg); err != nil {
		return Catalog{}, err
	}

	applyServerEnv(&cfg.Server)
	cfg.DBURL = getEnv("DB_URL", cfg.DBURL)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.DBMinConns = getEnvInt("DB_MIN_CONNS", cfg.DBMinConns)
	cfg.DBMaxIdleSecs = getEnvInt("DB_MAX_CONN_IDLE_SECS", cfg.DBMaxIdleSecs)
	cfg.DBMaxLifeSecs = getEnvInt("DB_MAX_CONN_LIFETIME_SECS", cfg.DBMaxLifeSecs)
	cfg.DBConnTimeoutSecs = getEnvInt("DB_CONN_TIMEOUT_SECS", cfg.DBConnTimeoutSecs)
	cfg.DBStatementCache = getEnvInt("DB_STATEMENT_CACHE_CAPACITY", cfg.DBStatementCache)

	if err := validateServer(cfg.Server); err != nil {
		return Catalog{}, err
	}
	if cfg.DBURL == "" {
		return Catalog{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return Catalog{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Catalog{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Catalog{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Catalog{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return cfg, nil
}

// LoadOscars reads orchestration configuration from defaults, the optional
// CONFIG_FILE and environment variables, in that order of precedence.
func LoadOscars() (Oscars, error) {
	cfg := Oscars{
		Server:             defaultServer("8080"),
		CatalogTimeoutSecs: 5,
		CatalogPageSize:    100,
		NotifyDelayMillis:  3000,
		NotifyWorkers:      4,
		NotifyQueueSize:    256,
		NotifyTimeoutSecs:  5,
	}
	if err := loadFile(&cfg); err != nil {
		return Oscars{}, err
	}

	applyServerEnv(&cfg.Server)
	cfg.CatalogURL = getEnv("CATALOG_URL", cfg.CatalogURL)
	cfg.CatalogTimeoutSecs = getEnvInt("CATALOG_TIMEOUT_SECS", cfg.CatalogTimeoutSecs)
	cfg.CatalogPageSize = getEnvInt("CATALOG_PAGE_SIZE", cfg.CatalogPageSize)
	cfg.NotifyDelayMillis = getEnvInt("NOTIFY_DELAY_MS", cfg.NotifyDelayMillis)
	cfg.NotifyWorkers = getEnvInt("NOTIFY_WORKERS", cfg.NotifyWorkers)
	cfg.NotifyQueueSize = getEnvInt("NOTIFY_QUEUE_SIZE", cfg.NotifyQueueSize)
	cfg.NotifyTimeoutSecs = getEnvInt("NOTIFY_TIMEOUT_SECS", cfg.NotifyTimeoutSecs)

	if err := validateServer(cfg.Server); err != nil {
		return Oscars{}, err
	}
	if cfg.CatalogURL == "" {
		return Oscars{}, fmt.Errorf("CATALOG_URL is required")
	}
	if cfg.CatalogTimeoutSecs <= 0 {
		return Oscars{}, fmt.Errorf("CATALOG_TIMEOUT_SECS must be positive")
	}
	if cfg.CatalogPageSize <= 0 {
		return Oscars{}, fmt.Errorf("CATALOG_PAGE_SIZE must be positive")
	}
	if cfg.NotifyDelayMillis < 0 {
		return Oscars{}, fmt.Errorf("NOTIFY_DELAY_MS must be non-negative")
	}
	if cfg.NotifyWorkers <= 0 {
		return Oscars{}, fmt.Errorf("NOTIFY_WORKERS must be positive")
	}
	if cfg.NotifyQueueSize <= 0 {
		return Oscars{}, fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive")
	}
	if cfg.NotifyTimeoutSecs <= 0 {
		return Oscars{}, fmt.Errorf("NOTIFY_TIMEOUT_SECS must be positive")
	}
	return cfg, nil
}

func applyServerEnv(s *Server) {
	s.Port = getEnv("PORT", s.Port)
	s.ReadTimeoutSecs = getEnvInt("SERVER_READ_TIMEOUT", s.ReadTimeoutSecs)
	s.WriteTimeoutSecs = getEnvInt("SERVER_WRITE_TIMEOUT", s.WriteTimeoutSecs)
	s.IdleTimeoutSecs = getEnvInt("SERVER_IDLE_TIMEOUT", s.IdleTimeoutSecs)
	s.LogLevel = getEnv("LOG_LEVEL", s.LogLevel)
}

func validateServer(s Server) error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if s.ReadTimeoutSecs <= 0 || s.WriteTimeoutSecs <= 0 || s.IdleTimeoutSecs <= 0 {
		return fmt.Errorf("SERVER_*_TIMEOUT values must be positive")
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

func loadFile(dst any) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("CONFIG_FILE: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("CONFIG_FILE: parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
