package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/lpn-service/internal/application"
	"github.com/wms-platform/lpn-service/internal/workflows"
	"github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/middleware"
)

type allocateWaveRequest struct {
	OrderIDs    []string `json:"orderIds" binding:"required,min=1,dive,required"`
	AutoRelease bool     `json:"autoRelease"`
}

type completeTaskRequest struct {
	PickedQuantity int `json:"pickedQuantity" binding:"min=0"`
}

func (h *Handler) allocateWave(c *gin.Context) {
	var req allocateWaveRequest
	if !bind(c, &req) {
		return
	}
	wave, err := h.handlers.Waves.AllocateWave(c.Request.Context(), application.AllocateWaveCommand{
		OrderIDs: req.OrderIDs,
		Origin:   origin(c),
	})
	respond(c, http.StatusCreated, wave, err)
}

// startWaveWorkflow hands the allocation to a Temporal worker and answers 202
func (h *Handler) startWaveWorkflow(c *gin.Context) {
	if h.starter == nil {
		middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("wave workflows"))
		return
	}
	var req allocateWaveRequest
	if !bind(c, &req) {
		return
	}
	tc := middleware.GetTenantContext(c)
	if tc == nil {
		middleware.AbortWithAppError(c, errors.ErrUnauthorized(""))
		return
	}

	workflowID, runID, err := h.starter.StartWaveAllocation(c.Request.Context(), workflows.WaveAllocationInput{
		Tenant:      *tc,
		OrderIDs:    req.OrderIDs,
		ActorID:     tc.ActorID,
		AutoRelease: req.AutoRelease,
	})
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Error("Failed to start wave workflow", "error", err)
		middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("wave workflows").Wrap(err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"workflowId": workflowID,
		"runId":      runID,
	})
}

func (h *Handler) getWave(c *gin.Context) {
	wave, err := h.handlers.Waves.GetWave(c.Request.Context(), c.Param("waveId"))
	respond(c, http.StatusOK, wave, err)
}

func (h *Handler) releaseWave(c *gin.Context) {
	wave, err := h.handlers.Waves.ReleaseWave(c.Request.Context(), c.Param("waveId"))
	respond(c, http.StatusOK, wave, err)
}

func (h *Handler) startTask(c *gin.Context) {
	task, err := h.handlers.Waves.StartTask(c.Request.Context(), c.Param("taskId"))
	respond(c, http.StatusOK, task, err)
}

func (h *Handler) completeTask(c *gin.Context) {
	var req completeTaskRequest
	if !bind(c, &req) {
		return
	}
	task, err := h.handlers.Waves.CompleteTask(c.Request.Context(), application.CompleteTaskCommand{
		TaskID:         c.Param("taskId"),
		PickedQuantity: req.PickedQuantity,
	})
	respond(c, http.StatusOK, task, err)
}

func (h *Handler) cancelTask(c *gin.Context) {
	task, err := h.handlers.Waves.CancelTask(c.Request.Context(), c.Param("taskId"))
	respond(c, http.StatusOK, task, err)
}
