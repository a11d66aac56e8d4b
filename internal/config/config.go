package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for every environment override.
const envPrefix = "VOIPROUTER_"

const (
	defaultListenAddr       = ":8080"
	defaultCountryCode      = "39"
	defaultPublicContext    = "public"
	defaultResponseDeadline = 2 * time.Second
	defaultTenantCacheTTL   = 30 * time.Second
	defaultTimezone         = "Europe/Rome"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
)

var defaultEmergencyNumbers = []string{"112", "113", "115", "118"}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	DBDSN      string `yaml:"db_dsn"`
	DBMaxConns int32  `yaml:"db_max_conns"`
	DBMinConns int32  `yaml:"db_min_conns"`

	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	TenantCacheTTL time.Duration `yaml:"tenant_cache_ttl"`

	XMLCurlUser     string `yaml:"xmlcurl_basic_user"`
	XMLCurlPass     string `yaml:"xmlcurl_basic_pass"`
	HealthAuthToken string `yaml:"health_auth_token"`

	CountryCode      string        `yaml:"country_code"`
	PublicContext    string        `yaml:"public_context"`
	ResponseDeadline time.Duration `yaml:"response_deadline"`
	EmergencyNumbers []string      `yaml:"emergency_numbers"`
	DefaultTimezone  string        `yaml:"default_timezone"`

	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads a .env file if present, then the YAML file at path (skipped
// when path is empty), then VOIPROUTER_* overrides. Precedence is
// env > file > defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListenAddr:       defaultListenAddr,
		DBMaxConns:       20,
		DBMinConns:       5,
		TenantCacheTTL:   defaultTenantCacheTTL,
		CountryCode:      defaultCountryCode,
		PublicContext:    defaultPublicContext,
		ResponseDeadline: defaultResponseDeadline,
		EmergencyNumbers: append([]string(nil), defaultEmergencyNumbers...),
		DefaultTimezone:  defaultTimezone,
		LogLevel:         defaultLogLevel,
		LogFormat:        defaultLogFormat,
		RateLimit:        RateLimitConfig{RPS: 20, Burst: 40},
	}
}

func applyEnvOverrides(cfg *Config) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	dur := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*dst = d
			return nil
		}
	}
	num := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	num32 := func(dst *int32) func(string) error {
		return func(v string) error {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return err
			}
			*dst = int32(n)
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"LISTEN_ADDR":        str(&cfg.ListenAddr),
		"DB_DSN":             str(&cfg.DBDSN),
		"DB_MAX_CONNS":       num32(&cfg.DBMaxConns),
		"DB_MIN_CONNS":       num32(&cfg.DBMinConns),
		"REDIS_ADDR":         str(&cfg.RedisAddr),
		"REDIS_PASSWORD":     str(&cfg.RedisPassword),
		"REDIS_DB":           num(&cfg.RedisDB),
		"TENANT_CACHE_TTL":   dur(&cfg.TenantCacheTTL),
		"XMLCURL_BASIC_USER": str(&cfg.XMLCurlUser),
		"XMLCURL_BASIC_PASS": str(&cfg.XMLCurlPass),
		"HEALTH_AUTH_TOKEN":  str(&cfg.HealthAuthToken),
		"COUNTRY_CODE":       str(&cfg.CountryCode),
		"PUBLIC_CONTEXT":     str(&cfg.PublicContext),
		"RESPONSE_DEADLINE":  dur(&cfg.ResponseDeadline),
		"DEFAULT_TIMEZONE":   str(&cfg.DefaultTimezone),
		"LOG_LEVEL":          str(&cfg.LogLevel),
		"LOG_FORMAT":         str(&cfg.LogFormat),
		"RATE_LIMIT_BURST":   num(&cfg.RateLimit.Burst),
		"EMERGENCY_NUMBERS": func(v string) error {
			cfg.EmergencyNumbers = splitList(v)
			return nil
		},
		"RATE_LIMIT_RPS": func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			cfg.RateLimit.RPS = f
			return nil
		},
	}

	for key, apply := range envMap {
		val, ok := os.LookupEnv(envPrefix + key)
		if !ok || val == "" {
			continue
		}
		if err := apply(val); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.DBDSN == "" {
		return errors.New("db_dsn is required")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("db_max_conns must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("db_min_conns must be between 0 and db_max_conns, got %d", c.DBMinConns)
	}
	if (c.XMLCurlUser == "") != (c.XMLCurlPass == "") {
		return errors.New("xmlcurl_basic_user and xmlcurl_basic_pass must both be provided or both be omitted")
	}
	if c.CountryCode == "" || strings.Trim(c.CountryCode, "0123456789") != "" {
		return fmt.Errorf("country_code must be digits only, got %q", c.CountryCode)
	}
	if c.ResponseDeadline <= 0 {
		return fmt.Errorf("response_deadline must be positive, got %s", c.ResponseDeadline)
	}
	if c.TenantCacheTTL < 0 {
		return fmt.Errorf("tenant_cache_ttl must not be negative, got %s", c.TenantCacheTTL)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("default_timezone: %w", err)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit needs positive rps and burst, got %v/%d", c.RateLimit.RPS, c.RateLimit.Burst)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log_format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CacheEnabled reports whether the redis tenant cache should be used.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != "" && c.TenantCacheTTL > 0
}
