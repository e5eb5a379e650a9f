package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"geocover/internal/api"
	"geocover/internal/api/handlers"
	"geocover/internal/boundary"
	"geocover/internal/config"
	"geocover/internal/geo"
	"geocover/internal/logger"
	"geocover/internal/metrics"
	"geocover/internal/repository"
	"geocover/internal/repository/memory"
	"geocover/internal/repository/rediscache"
	"geocover/internal/services"
	"geocover/pkg/budget"
)

func main() {
	log := logger.Setup()

	// Load configuration
	cfg := config.Load()
	log.Info("config_loaded", "config", cfg)

	m, err := metrics.NewCollector(nil)
	if err != nil {
		log.Error("metrics_init_failed", "err", err)
		os.Exit(1)
	}

	// Initialize repositories
	var cache repository.CoverageCache
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc := rediscache.Open(rediscache.Options{
			Addr:     rediscache.Addr(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Cache.TTL,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			// Lookups fail soft, so the server still starts and scans uncached.
			log.Warn("redis_unreachable", "addr", rediscache.Addr(cfg.Redis.Host, cfg.Redis.Port), "err", err)
		}
		cancel()
		defer rc.Close()
		cache = rc
	case config.CacheMemory:
		cache = memory.NewCoverageCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	}
	jobRepo := memory.NewJobRepository()
	lockManager := memory.NewLockManager(time.Minute)
	defer lockManager.Stop()

	// Initialize services
	notificationService := services.NewNotificationService(log)
	coverageService := services.NewCoverageService(cache, m, cfg.Coverage)
	jobService := services.NewJobService(
		jobRepo,
		lockManager,
		coverageService,
		notificationService,
		m,
		cfg.Jobs.Timeout,
	)
	cellService := services.NewCellService()
	densityService := services.NewDensityService(geo.DefaultDensityConfig())
	calc, err := budget.NewCalculator(budget.Rates{
		InsurancePerWorkerMonth: cfg.Budget.InsurancePerWorkerMonth,
		DataPlanPerWorkerMonth:  cfg.Budget.DataPlanPerWorkerMonth,
		MiscRate:                cfg.Budget.MiscRate,
	})
	if err != nil {
		log.Error("budget_init_failed", "err", err)
		os.Exit(1)
	}
	boundaryClient := boundary.NewClient(cfg.Boundary.BaseURL, cfg.Boundary.NameField, cfg.Boundary.Timeout)

	// Setup router
	router := api.NewRouter(api.Handlers{
		Coverage: handlers.NewCoverageHandler(coverageService),
		Cells:    handlers.NewCellHandler(cellService),
		Jobs:     handlers.NewJobHandler(jobService, coverageService),
		Density:  handlers.NewDensityHandler(densityService),
		Budget:   handlers.NewBudgetHandler(calc),
		Boundary: handlers.NewBoundaryHandler(boundaryClient),
	}, api.Options{
		APIKeys:      cfg.Server.APIKeys,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Metrics:      m,
		Logger:       log,
	})

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	router.Setup(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info("server_starting", "addr", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("server_stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server_shutdown", "err", err)
	}
	if err := jobService.Shutdown(ctx); err != nil {
		log.Warn("jobs_shutdown", "err", err)
	}
	log.Info("server_stopped")
}
