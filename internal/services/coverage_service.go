package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb/encoding/wkb"

	"geocover/internal/geo"
	"geocover/internal/logger"
	"geocover/internal/metrics"
	"geocover/internal/repository"
)

// CoverageService runs coverage computations in front of an optional result
// cache. It is safe for concurrent use.
type CoverageService struct {
	cache    repository.CoverageCache
	metrics  *metrics.Collector
	defaults geo.CoverageConfig
	log      *slog.Logger
}

// NewCoverageService creates a CoverageService. cache and m may be nil, in
// which case results are never cached and nothing is measured.
func NewCoverageService(cache repository.CoverageCache, m *metrics.Collector, defaults geo.CoverageConfig) *CoverageService {
	return &CoverageService{
		cache:    cache,
		metrics:  m,
		defaults: defaults,
		log:      logger.L(),
	}
}

// Defaults returns the configured coverage settings that requests start from.
func (s *CoverageService) Defaults() geo.CoverageConfig {
	return s.defaults
}

// CoverageResult is a finished coverage run.
type CoverageResult struct {
	Codes    geo.CoverageSet
	Config   geo.CoverageConfig
	Key      string
	CacheHit bool
	// Warning is set when no cell was found. The run still succeeded.
	Warning string
}

// RegionKey returns a stable digest of a region and the settings that affect
// its coverage. Workers is left out because it never changes the result.
func RegionKey(region *geo.Region, cfg geo.CoverageConfig) (string, error) {
	h := sha256.New()
	if !region.IsEmpty() {
		data, err := wkb.Marshal(region.MultiPolygon())
		if err != nil {
			return "", fmt.Errorf("region digest: %w", err)
		}
		h.Write(data)
	}
	fmt.Fprintf(h, "|%d|%g|%s|%s", cfg.Precision, cfg.ScanStep, cfg.Mode, cfg.Strategy)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Cover normalizes in and covers it.
func (s *CoverageService) Cover(ctx context.Context, in geo.RegionInput, cfg geo.CoverageConfig, opts ...geo.CoverOption) (*CoverageResult, error) {
	region, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	return s.CoverRegion(ctx, region, cfg, opts...)
}

// CoverRegion covers an already normalized region. A cached result for the
// same region and settings is returned without scanning. ErrNoCoverageFound
// is not an error here: the result is empty and Warning says why.
func (s *CoverageService) CoverRegion(ctx context.Context, region *geo.Region, cfg geo.CoverageConfig, opts ...geo.CoverOption) (*CoverageResult, error) {
	cfg, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	key, err := RegionKey(region, cfg)
	if err != nil {
		return nil, err
	}

	if codes, ok := s.cached(ctx, key); ok {
		return &CoverageResult{Codes: codes, Config: cfg, Key: key, CacheHit: true, Warning: warningFor(codes)}, nil
	}

	start := time.Now()
	codes, err := geo.Cover(ctx, region, cfg, opts...)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, geo.ErrNoCoverageFound):
		outcome = "empty"
		err = nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}
	s.metrics.ObserveCoverage(string(cfg.Strategy), string(cfg.Mode), outcome, len(codes), elapsed)
	if err != nil {
		s.log.Warn("coverage_aborted", "key", key[:12], "outcome", outcome, "err", err)
		return nil, err
	}

	s.log.Info("coverage_done",
		"key", key[:12],
		"cells", len(codes),
		"precision", cfg.Precision,
		"strategy", cfg.Strategy,
		"mode", cfg.Mode,
		"duration_ms", elapsed.Milliseconds(),
	)
	s.store(ctx, key, codes)
	return &CoverageResult{Codes: codes, Config: cfg, Key: key, Warning: warningFor(codes)}, nil
}

func warningFor(codes []string) string {
	if len(codes) == 0 {
		return geo.ErrNoCoverageFound.Error()
	}
	return ""
}

// cached looks key up. Cache failures are logged and treated as misses.
func (s *CoverageService) cached(ctx context.Context, key string) (geo.CoverageSet, bool) {
	if s.cache == nil {
		return nil, false
	}
	codes, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.ObserveCache("error")
		s.log.Warn("coverage_cache_get", "err", err)
		return nil, false
	case !ok:
		s.metrics.ObserveCache("miss")
		return nil, false
	}
	s.metrics.ObserveCache("hit")
	return geo.CoverageSet(codes), true
}

func (s *CoverageService) store(ctx context.Context, key string, codes geo.CoverageSet) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, codes); err != nil {
		s.log.Warn("coverage_cache_set", "err", err)
	}
}
