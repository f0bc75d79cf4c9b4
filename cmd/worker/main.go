package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/lpn-service/internal/bootstrap"
	"github.com/wms-platform/lpn-service/internal/workflows"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
	"github.com/wms-platform/lpn-service/pkg/temporal"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

const serviceName = "lpn-service-worker"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(bootstrap.GetEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting lpn-service worker")

	config := loadConfig()
	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = bootstrap.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Enabled = bootstrap.GetEnv("TRACING_ENABLED", "false") == "true"
	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		tracerProvider, _ = tracing.Initialize(ctx, tracing.DefaultConfig(serviceName))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()

	// The worker shares the API's stores; an in-memory store here would
	// allocate against a private copy.
	if config.Runtime.EventStoreDriver == bootstrap.DriverMemory {
		logger.Warn("Worker is using the in-memory event store")
	}

	runtime, err := bootstrap.Build(ctx, config.Runtime, logger, metrics.New(metrics.DefaultConfig(serviceName)), tracerProvider.Tracer())
	if err != nil {
		logger.WithError(err).Error("Failed to build runtime")
		os.Exit(1)
	}
	defer runtime.Close(context.Background())

	if err := runtime.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start runtime")
		os.Exit(1)
	}

	temporalClient, err := temporal.NewClient(ctx, config.Temporal, logger.Logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close(context.Background())
	logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort, "namespace", config.Temporal.Namespace)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Waves))

	w.RegisterWorkflowWithOptions(workflows.WaveAllocationWorkflow, workflow.RegisterOptions{
		Name: workflows.WaveAllocationWorkflowName,
	})
	w.RegisterActivity(workflows.NewWaveActivities(runtime.Handlers.Waves, logger))
	logger.Info("Registered workflows and activities",
		"workflows", []string{workflows.WaveAllocationWorkflowName},
		"activities", []string{workflows.AllocateWaveActivity, workflows.ReleaseWaveActivity},
	)

	if err := w.Start(); err != nil {
		logger.WithError(err).Error("Failed to start worker")
		os.Exit(1)
	}
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.Waves)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}

// Config holds worker configuration
type Config struct {
	Runtime  *bootstrap.Config
	Temporal *temporal.Config
}

func loadConfig() *Config {
	return &Config{
		Runtime: bootstrap.LoadConfig("lpn-service"),
		Temporal: &temporal.Config{
			HostPort:  bootstrap.GetEnv("TEMPORAL_HOST_PORT", "localhost:7233"),
			Namespace: bootstrap.GetEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  "lpn-service-worker",
		},
	}
}
