// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note — Configuration Management:
// Go projects typically manage configuration in one of these ways:
//  1. Struct literals with defaults (NewDefaultConfig)
//  2. Environment variables via os.Getenv() / os.LookupEnv()
//  3. Config files (YAML/TOML/.env)
//  4. Command-line flags
//
// This package layers the first three: defaults, then an optional .env file
// read with github.com/joho/godotenv, then the process environment. Using
// typed structs (not raw strings/maps) gives compile-time safety.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"geocover/internal/geo"
	"geocover/internal/logger"
)

// Config is the top-level configuration container.
//
// Go Learning Note — Struct Composition:
// Go doesn't have classes or inheritance. Instead, you compose structs by
// nesting them. Here Config "has a" ServerConfig, CoverageConfig, etc.
type Config struct {
	Server   ServerConfig
	Coverage geo.CoverageConfig
	Jobs     JobsConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Boundary BoundaryConfig
	Budget   BudgetConfig
}

// ServerConfig holds HTTP server settings.
//
// Go Learning Note — time.Duration:
// Go uses time.Duration (an int64 of nanoseconds) instead of raw integers for
// timeouts and intervals, so "10 * time.Second" is self-documenting.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// APIKeys are accepted bearer tokens. Empty disables authentication.
	APIKeys      []string
	MaxBodyBytes int64
}

// JobsConfig controls asynchronous coverage jobs.
type JobsConfig struct {
	Timeout time.Duration
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// CacheConfig selects where finished coverage sets are kept.
type CacheConfig struct {
	Backend  string
	Capacity int
	TTL      time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BoundaryConfig points at the administrative boundary MapServer layer.
type BoundaryConfig struct {
	BaseURL   string
	NameField string
	Timeout   time.Duration
}

// BudgetConfig holds the per-worker monthly rates (IDR) of the forecast.
type BudgetConfig struct {
	InsurancePerWorkerMonth float64
	DataPlanPerWorkerMonth  float64
	MiscRate                float64
}

// DefaultBoundaryURL is the kabupaten/kota layer of Indonesia's BIG
// geoservices.
const DefaultBoundaryURL = "https://geoservices.big.go.id/rbi/rest/services/BATASWILAYAH/Administrasi_AR_KabKota_50K/MapServer/0/query"

// NewDefaultConfig returns a Config populated with sensible defaults.
//
// Go Learning Note — Constructor Functions:
// Go has no constructors. By convention, New<Type>() functions serve the same
// purpose and return a pointer so large config objects are not copied.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBodyBytes: 32 << 20,
		},
		Coverage: geo.DefaultCoverageConfig(),
		Jobs: JobsConfig{
			Timeout: 10 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:  CacheMemory,
			Capacity: 128,
			TTL:      time.Hour,
		},
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
		Boundary: BoundaryConfig{
			BaseURL:   DefaultBoundaryURL,
			NameField: "WADMKC",
			Timeout:   30 * time.Second,
		},
		Budget: BudgetConfig{
			InsurancePerWorkerMonth: 132000,
			DataPlanPerWorkerMonth:  450000,
			MiscRate:                0.05,
		},
	}
}

// Load reads the given .env files (".env" when none are named; missing files
// are skipped) and then the process environment. Values already set in the
// environment win over the files. Malformed values keep their defaults and
// are logged.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.L().Warn("config_env_file", "file", f, "err", err)
		}
	}
	cfg, problems := FromEnv(os.LookupEnv)
	for _, err := range problems {
		logger.L().Warn("config_invalid_value", "err", err)
	}
	return cfg
}

// FromEnv builds a Config from defaults overridden by lookup. It returns one
// error per value that could not be used.
func FromEnv(lookup func(string) (string, bool)) (*Config, []error) {
	cfg := NewDefaultConfig()
	e := envReader{lookup: lookup}

	if v, ok := e.str("PORT"); ok {
		if !strings.Contains(v, ":") {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if v, ok := e.str("API_KEYS"); ok {
		cfg.Server.APIKeys = splitList(v)
	}
	e.int64("MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	e.int("COVERAGE_PRECISION", &cfg.Coverage.Precision)
	e.float("COVERAGE_SCAN_STEP", &cfg.Coverage.ScanStep)
	if v, ok := e.str("COVERAGE_MODE"); ok {
		cfg.Coverage.Mode = geo.Mode(v)
	}
	if v, ok := e.str("COVERAGE_STRATEGY"); ok {
		cfg.Coverage.Strategy = geo.Strategy(v)
	}
	e.int("COVERAGE_WORKERS", &cfg.Coverage.Workers)
	if _, err := cfg.Coverage.Resolve(); err != nil {
		e.problems = append(e.problems, fmt.Errorf("coverage settings: %w", err))
		cfg.Coverage = geo.DefaultCoverageConfig()
	}

	e.duration("JOB_TIMEOUT", &cfg.Jobs.Timeout)

	if v, ok := e.str("CACHE_BACKEND"); ok {
		switch v = strings.ToLower(v); v {
		case CacheMemory, CacheRedis, CacheNone:
			cfg.Cache.Backend = v
		default:
			e.problems = append(e.problems, fmt.Errorf("CACHE_BACKEND: unknown backend %q", v))
		}
	}
	e.int("CACHE_CAPACITY", &cfg.Cache.Capacity)
	e.duration("CACHE_TTL", &cfg.Cache.TTL)

	if v, ok := e.str("REDIS_HOST"); ok {
		cfg.Redis.Host = v
	}
	e.int("REDIS_PORT", &cfg.Redis.Port)
	if v, ok := e.str("REDIS_PASS"); ok {
		cfg.Redis.Password = v
	}
	e.int("REDIS_DB", &cfg.Redis.DB)

	if v, ok := e.str("BOUNDARY_BASE_URL"); ok {
		cfg.Boundary.BaseURL = v
	}
	if v, ok := e.str("BOUNDARY_NAME_FIELD"); ok {
		cfg.Boundary.NameField = v
	}
	e.duration("BOUNDARY_TIMEOUT", &cfg.Boundary.Timeout)

	e.float("BUDGET_INSURANCE", &cfg.Budget.InsurancePerWorkerMonth)
	e.float("BUDGET_DATAPLAN", &cfg.Budget.DataPlanPerWorkerMonth)
	e.float("BUDGET_MISC_RATE", &cfg.Budget.MiscRate)

	return cfg, e.problems
}

// LogValue keeps secrets out of startup logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Server.Port),
		slog.Bool("auth", len(c.Server.APIKeys) > 0),
		slog.Int("precision", c.Coverage.Precision),
		slog.Float64("scan_step", c.Coverage.ScanStep),
		slog.String("mode", string(c.Coverage.Mode)),
		slog.String("strategy", string(c.Coverage.Strategy)),
		slog.String("cache", c.Cache.Backend),
		slog.Duration("job_timeout", c.Jobs.Timeout),
	)
}

type envReader struct {
	lookup   func(string) (string, bool)
	problems []error
}

func (e *envReader) str(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		e.problems = append(e.problems, fmt.Errorf("%s: %q is not a non-negative integer", key, v))
		return
	}
	*dst = n
}

func (e *envReader) int64(key string, dst *int64) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		e.problems = append(e.problems, fmt.Errorf("%s: %q is not a positive integer", key, v))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		e.problems = append(e.problems, fmt.Errorf("%s: %q is not a non-negative number", key, v))
		return
	}
	*dst = f
}

// duration accepts Go duration strings ("90s", "5m") or plain seconds.
func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Second
		return
	}
	e.problems = append(e.problems, fmt.Errorf("%s: %q is not a duration", key, v))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
