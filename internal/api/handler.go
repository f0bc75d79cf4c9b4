// Package api exposes the LPN command handlers over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/lpn-service/internal/application"
	"github.com/wms-platform/lpn-service/internal/rfid"
	"github.com/wms-platform/lpn-service/internal/workflows"
	"github.com/wms-platform/lpn-service/pkg/cloudevents"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
)

// DefaultRFIDWindow suppresses repeat reads of one tag
const DefaultRFIDWindow = 2 * time.Second

// WaveWorkflowStarter launches asynchronous wave allocations
type WaveWorkflowStarter interface {
	StartWaveAllocation(ctx context.Context, input workflows.WaveAllocationInput) (workflowID, runID string, err error)
}

// Handler serves the LPN API
type Handler struct {
	handlers   *application.Handlers
	debouncer  *rfid.Debouncer
	rfidWindow time.Duration
	starter    WaveWorkflowStarter
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithWaveWorkflows enables POST /waves/workflows
func WithWaveWorkflows(starter WaveWorkflowStarter) Option {
	return func(h *Handler) { h.starter = starter }
}

// WithDebouncer replaces the RFID debouncer and its window
func WithDebouncer(d *rfid.Debouncer, window time.Duration) Option {
	return func(h *Handler) {
		h.debouncer = d
		h.rfidWindow = window
	}
}

// WithMetrics records RFID read outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(handlers *application.Handlers, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		handlers:   handlers,
		debouncer:  rfid.NewDebouncer(),
		rfidWindow: DefaultRFIDWindow,
		logger:     logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on rg. rg must already carry tenant auth.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/receipts", h.receive)

	lpns := rg.Group("/lpns")
	{
		lpns.GET("/available", h.listAvailable)
		lpns.GET("/:lpnId", h.getLpn)
		lpns.GET("/:lpnId/history", h.getHistory)
		lpns.POST("/:lpnId/putaway", h.putaway)
		lpns.POST("/:lpnId/allocate", h.allocate)
		lpns.POST("/:lpnId/pick", h.pick)
		lpns.POST("/:lpnId/count", h.reportCount)
		lpns.POST("/:lpnId/adjust", h.authorizeAdjustment)
		lpns.POST("/:lpnId/void", h.void)
		lpns.POST("/:lpnId/quarantine", h.quarantine)
	}

	rg.POST("/packs", h.pack)
	rg.POST("/dispatches", h.dispatch)

	waves := rg.Group("/waves")
	{
		waves.POST("", h.allocateWave)
		waves.POST("/workflows", h.startWaveWorkflow)
		waves.GET("/:waveId", h.getWave)
		waves.POST("/:waveId/release", h.releaseWave)
	}

	tasks := rg.Group("/tasks")
	{
		tasks.POST("/:taskId/start", h.startTask)
		tasks.POST("/:taskId/complete", h.completeTask)
		tasks.POST("/:taskId/cancel", h.cancelTask)
	}

	rg.POST("/rfid/reads", h.rfidReads)
}

// origin reads the issuing station. The actor comes from the tenant context.
func origin(c *gin.Context) application.Origin {
	return application.Origin{StationID: c.GetHeader(cloudevents.HeaderStationID)}
}
