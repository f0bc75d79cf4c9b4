package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/lpn-service/internal/api"
	"github.com/wms-platform/lpn-service/internal/bootstrap"
	"github.com/wms-platform/lpn-service/internal/rfid"
	"github.com/wms-platform/lpn-service/internal/workflows"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
	"github.com/wms-platform/lpn-service/pkg/middleware"
	"github.com/wms-platform/lpn-service/pkg/temporal"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

const serviceName = "lpn-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(bootstrap.GetEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting lpn-service API")

	config := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing is optional; the service runs without it
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = bootstrap.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = bootstrap.GetEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = bootstrap.GetEnv("TRACING_ENABLED", "false") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		tracerProvider, _ = tracing.Initialize(ctx, tracing.DefaultConfig(serviceName))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracer")
		}
	}()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	runtime, err := bootstrap.Build(ctx, config.Runtime, logger, m, tracerProvider.Tracer())
	if err != nil {
		logger.WithError(err).Error("Failed to build runtime")
		os.Exit(1)
	}
	defer runtime.Close(context.Background())

	if err := runtime.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start runtime")
		os.Exit(1)
	}

	debouncer := rfid.NewDebouncer()
	go sweepDebouncer(ctx, debouncer, config.RFIDWindow)

	opts := []api.Option{
		api.WithDebouncer(debouncer, config.RFIDWindow),
		api.WithMetrics(m),
	}

	// Wave workflows need a Temporal frontend; without one the route answers 503
	if config.Temporal.HostPort != "" {
		temporalClient, err := temporal.NewClient(ctx, config.Temporal, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Temporal unavailable, wave workflows disabled")
		} else {
			runtime.AddCheck(temporalClient.HealthCheck, temporalClient.Close)
			opts = append(opts, api.WithWaveWorkflows(
				workflows.NewStarter(temporalClient.Client(), temporal.TaskQueues.Waves),
			))
			logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort)
		}
	}

	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger)
	middlewareConfig.Metrics = m
	middlewareConfig.EnableTracing = tracingConfig.Enabled
	middleware.Setup(router, middlewareConfig)

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return runtime.Ready(checkCtx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1", middleware.TenantAuth(middlewareConfig.TenantAuth))
	api.NewHandler(runtime.Handlers, logger, opts...).Register(v1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// sweepDebouncer drops remembered tags that can no longer suppress a read
func sweepDebouncer(ctx context.Context, d *rfid.Debouncer, window time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(window)
		}
	}
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	RFIDWindow time.Duration
	Runtime    *bootstrap.Config
	Temporal   *temporal.Config
}

func loadConfig() *Config {
	window, err := time.ParseDuration(bootstrap.GetEnv("RFID_DEBOUNCE_WINDOW", api.DefaultRFIDWindow.String()))
	if err != nil {
		window = api.DefaultRFIDWindow
	}
	return &Config{
		ServerAddr: bootstrap.GetEnv("SERVER_ADDR", ":8010"),
		RFIDWindow: window,
		Runtime:    bootstrap.LoadConfig(serviceName),
		Temporal: &temporal.Config{
			HostPort:  os.Getenv("TEMPORAL_HOST_PORT"),
			Namespace: bootstrap.GetEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  "lpn-service-api",
		},
	}
}
