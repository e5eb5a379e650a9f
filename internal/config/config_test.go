package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"geocover/internal/geo"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != ":8080" {
		t.Errorf("Expected :8080, got %s", cfg.Server.Port)
	}
	if cfg.Coverage.Precision != 6 || cfg.Coverage.ScanStep != 0.0015 {
		t.Errorf("Unexpected coverage defaults %+v", cfg.Coverage)
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Errorf("Expected memory cache, got %s", cfg.Cache.Backend)
	}
	if cfg.Budget.InsurancePerWorkerMonth != 132000 || cfg.Budget.DataPlanPerWorkerMonth != 450000 {
		t.Errorf("Unexpected budget defaults %+v", cfg.Budget)
	}
	if cfg.Boundary.NameField != "WADMKC" {
		t.Errorf("Expected WADMKC, got %s", cfg.Boundary.NameField)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, problems := FromEnv(mapLookup(map[string]string{
		"PORT":               "9090",
		"API_KEYS":           "alpha, beta,,",
		"COVERAGE_PRECISION": "7",
		"COVERAGE_SCAN_STEP": "0.0005",
		"COVERAGE_MODE":      "centroid-only",
		"COVERAGE_STRATEGY":  "subdivide",
		"JOB_TIMEOUT":        "90",
		"CACHE_BACKEND":      "REDIS",
		"CACHE_TTL":          "15m",
		"REDIS_HOST":         "cache",
		"REDIS_PORT":         "6380",
		"REDIS_DB":           "2",
		"BUDGET_MISC_RATE":   "0.1",
	}))
	if len(problems) != 0 {
		t.Fatalf("Unexpected problems: %v", problems)
	}

	if cfg.Server.Port != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.Server.Port)
	}
	if len(cfg.Server.APIKeys) != 2 || cfg.Server.APIKeys[0] != "alpha" || cfg.Server.APIKeys[1] != "beta" {
		t.Errorf("Unexpected API keys %v", cfg.Server.APIKeys)
	}
	if cfg.Coverage.Precision != 7 || cfg.Coverage.ScanStep != 0.0005 {
		t.Errorf("Unexpected coverage %+v", cfg.Coverage)
	}
	if cfg.Coverage.Mode != geo.ModeCentroidOnly || cfg.Coverage.Strategy != geo.StrategySubdivide {
		t.Errorf("Unexpected mode/strategy %s/%s", cfg.Coverage.Mode, cfg.Coverage.Strategy)
	}
	if cfg.Jobs.Timeout != 90*time.Second {
		t.Errorf("Expected 90s job timeout, got %v", cfg.Jobs.Timeout)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("Unexpected cache %+v", cfg.Cache)
	}
	if cfg.Redis.Host != "cache" || cfg.Redis.Port != 6380 || cfg.Redis.DB != 2 {
		t.Errorf("Unexpected redis %+v", cfg.Redis)
	}
	if cfg.Budget.MiscRate != 0.1 {
		t.Errorf("Expected misc rate 0.1, got %v", cfg.Budget.MiscRate)
	}
}

func TestFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	cfg, problems := FromEnv(mapLookup(map[string]string{
		"COVERAGE_PRECISION": "20",
		"CACHE_CAPACITY":     "lots",
		"CACHE_BACKEND":      "disk",
		"JOB_TIMEOUT":        "soon",
	}))
	if len(problems) != 4 {
		t.Fatalf("Expected 4 problems, got %d: %v", len(problems), problems)
	}
	if cfg.Coverage.Precision != 6 {
		t.Errorf("Expected default precision, got %d", cfg.Coverage.Precision)
	}
	if cfg.Cache.Capacity != 128 || cfg.Cache.Backend != CacheMemory {
		t.Errorf("Expected default cache, got %+v", cfg.Cache)
	}
	if cfg.Jobs.Timeout != 10*time.Minute {
		t.Errorf("Expected default job timeout, got %v", cfg.Jobs.Timeout)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("COVERAGE_PRECISION=5\nBOUNDARY_NAME_FIELD=WADMKK\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COVERAGE_PRECISION", "")
	os.Unsetenv("COVERAGE_PRECISION")
	t.Setenv("BOUNDARY_NAME_FIELD", "NAMOBJ")

	cfg := Load(file, filepath.Join(dir, "missing.env"))

	if cfg.Coverage.Precision != 5 {
		t.Errorf("Expected precision from file, got %d", cfg.Coverage.Precision)
	}
	if cfg.Boundary.NameField != "NAMOBJ" {
		t.Errorf("Expected environment to win over file, got %s", cfg.Boundary.NameField)
	}
}
