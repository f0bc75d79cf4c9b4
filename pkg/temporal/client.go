// Package temporal dials the Temporal frontend and builds workers for the
// wave allocation task queue.
package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
)

type Config struct {
	HostPort  string
	Namespace string
	Identity  string
}

// TaskQueues served by this service
var TaskQueues = struct {
	Waves string
}{
	Waves: "lpn-waves-queue",
}

type Client struct {
	client client.Client
	config *Config
}

// NewClient dials the Temporal frontend. logger may be nil.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	options := client.Options{
		HostPort:  config.HostPort,
		Namespace: config.Namespace,
		Identity:  config.Identity,
	}
	if logger != nil {
		options.Logger = tlog.NewStructuredLogger(logger)
	}

	c, err := client.DialContext(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create Temporal client: %w", err)
	}

	return &Client{
		client: c,
		config: config,
	}, nil
}

func (c *Client) Client() client.Client {
	return c.client
}

// HealthCheck asks the frontend for its health
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return fmt.Errorf("temporal %s unhealthy: %w", c.config.HostPort, err)
	}
	return nil
}

// Close matches the closer signature used by the runtime
func (c *Client) Close(context.Context) error {
	c.client.Close()
	return nil
}

type WorkerOptions struct {
	TaskQueue                    string
	MaxConcurrentActivityPollers int
	MaxConcurrentWorkflowPollers int
	MaxConcurrentActivities      int
	MaxConcurrentWorkflows       int
	// StopTimeout lets running activities finish and release their locks on shutdown
	StopTimeout time.Duration
}

// DefaultWorkerOptions sizes a worker for wave allocation, whose activities
// hold locks and are few compared to workflow tasks.
func DefaultWorkerOptions(taskQueue string) *WorkerOptions {
	return &WorkerOptions{
		TaskQueue:                    taskQueue,
		MaxConcurrentActivityPollers: 4,
		MaxConcurrentWorkflowPollers: 4,
		MaxConcurrentActivities:      8,
		MaxConcurrentWorkflows:       50,
		StopTimeout:                  30 * time.Second,
	}
}

func (c *Client) NewWorker(opts *WorkerOptions) worker.Worker {
	workerOpts := worker.Options{
		MaxConcurrentActivityExecutionSize:     opts.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: opts.MaxConcurrentWorkflows,
		MaxConcurrentActivityTaskPollers:       opts.MaxConcurrentActivityPollers,
		MaxConcurrentWorkflowTaskPollers:       opts.MaxConcurrentWorkflowPollers,
		WorkerStopTimeout:                      opts.StopTimeout,
		Identity:                               c.config.Identity,
	}

	return worker.New(c.client, opts.TaskQueue, workerOpts)
}
