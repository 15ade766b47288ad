package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/services"
	httphandlers "github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/handlers/http"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/middleware"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/monitoring"
	repositories "github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/repositories"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/signal"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/config"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/logger"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/tracing"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/vilokanam/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	log := logger.MustNew(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Stores
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	registry := repoFactory.CreateConnectionRegistry()
	directory := repoFactory.CreateSessionDirectory()
	tickStore := repoFactory.CreateTickStore()

	// Metrics
	collector := monitoring.NewPrometheusCollector()

	// Core services
	router := services.NewRouter(registry, directory, collector, log)
	lifecycle := services.NewLifecycle(registry, directory, collector, log)
	metering := services.NewMetering(tickStore, directory, collector, log,
		cfg.Metering.AutoTicks, cfg.Metering.TickInterval)

	// Signaling transport
	wsOpts := signal.Options{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		OutboundQueueSize: cfg.Signal.OutboundQueueSize,
	}
	if cfg.RateLimiting.Enabled {
		wsOpts.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		wsOpts.MessageBurst = cfg.RateLimiting.WebSocket.Burst
		wsOpts.MaxMessageSize = cfg.RateLimiting.WebSocket.MaxMessageSizeBytes
	}
	wsServer := signal.NewWebSocketServer(registry, router, lifecycle, wsOpts, log)

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws/signal", wsServer.HandleWebSocket)
	wsMux.HandleFunc("/health", wsServer.HealthCheck)

	signalSrv := &http.Server{
		Addr:    cfg.Signal.Address,
		Handler: wsMux,
	}

	// HTTP API
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiRouter := gin.New()
	apiRouter.Use(middleware.RequestIDMiddleware())
	apiRouter.Use(middleware.RecoveryMiddleware(log))
	apiRouter.Use(middleware.ErrorHandlerMiddleware(log))
	apiRouter.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		apiRouter.Use(middleware.TracingMiddleware())
	}

	sessionHandler := httphandlers.NewSessionHandler(directory, registry)
	sessionHandler.SetupRoutes(apiRouter)
	meteringHandler := httphandlers.NewMeteringHandler(metering)
	meteringHandler.SetupRoutes(apiRouter)

	apiRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("stores", func(ctx context.Context) (bool, error) {
		if err := repoFactory.HealthCheck(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, 30*time.Second, 2*time.Second)

	apiRouter.GET("/ready", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := 200
		if status.Status != "healthy" {
			code = 503
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		apiRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	apiSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      apiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background loops
	bgCtx, bgCancel := context.WithCancel(context.Background())
	go metering.Run(bgCtx)
	go sampleGauges(bgCtx, cfg.Monitoring.MetricsInterval, registry, directory, collector, log)

	serverErr := make(chan error, 2)
	go func() {
		log.Infof("Starting signaling server on %s", cfg.Signal.Address)
		if err := signalSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	go func() {
		log.Infof("Starting API server on %s", cfg.Server.Address)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down...")
	bgCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during API server shutdown", "error", err)
		apiSrv.Close()
	}
	if err := signalSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during signaling server shutdown", "error", err)
		signalSrv.Close()
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("Server stopped")
}

// sampleGauges periodically publishes the connection and session counts.
func sampleGauges(ctx context.Context, interval time.Duration, registry ports.ConnectionRegistry, directory ports.SessionDirectory, collector *monitoring.PrometheusCollector, log *zap.SugaredLogger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collector.SetConnections(registry.Count())
			sessions, err := directory.SessionCount(ctx)
			if err != nil {
				log.Warnw("failed to count sessions", "error", err)
				continue
			}
			collector.SetSessions(sessions)
		}
	}
}
