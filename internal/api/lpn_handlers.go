package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/lpn-service/internal/application"
	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/middleware"
)

type receiveRequest struct {
	InboundOrderID string                     `json:"inboundOrderId" binding:"required"`
	Quantity       int                        `json:"quantity" binding:"min=0"`
	LpnID          string                     `json:"lpnId" binding:"omitempty,lpn_id"`
	SKU            string                     `json:"sku" binding:"omitempty,sku"`
	RawScan        string                     `json:"rawScan"`
	LpnCount       int                        `json:"lpnCount" binding:"min=0"`
	UnitsPerLpn    int                        `json:"unitsPerLpn" binding:"min=0"`
	PhotoSample    bool                       `json:"photoSample"`
	Attributes     *domain.PhysicalAttributes `json:"attributes"`
}

type putawayRequest struct {
	LocationCode string `json:"locationCode" binding:"required,location_code"`
}

type allocateRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	SKU     string `json:"sku" binding:"required,sku"`
}

type pickRequest struct {
	TaskID         string `json:"taskId"`
	PickedQuantity int    `json:"pickedQuantity" binding:"min=0"`
}

type countRequest struct {
	CountedQuantity int `json:"countedQuantity" binding:"min=0"`
}

type adjustRequest struct {
	NewQuantity int    `json:"newQuantity" binding:"min=0"`
	Reason      string `json:"reason" binding:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type packRequest struct {
	ParentLpnID string   `json:"parentLpnId" binding:"required,lpn_id"`
	LpnIDs      []string `json:"lpnIds" binding:"required,min=1,dive,lpn_id"`
}

type dispatchRequest struct {
	OrderID string   `json:"orderId" binding:"required"`
	LpnIDs  []string `json:"lpnIds" binding:"required,min=1,dive,lpn_id"`
}

// bind aborts with a validation error and reports false when the body is bad
func bind(c *gin.Context, obj interface{}) bool {
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return false
	}
	return true
}

// lpnID reads and checks the :lpnId path parameter
func lpnID(c *gin.Context) (string, bool) {
	id := c.Param("lpnId")
	if !domain.IsLpnID(id) {
		middleware.AbortWithAppError(c, errors.ErrValidation("invalid lpn id").WithDetail("lpnId", id))
		return "", false
	}
	return id, true
}

// respond writes result, or the error with its mapped status
func respond[T any](c *gin.Context, status int, result T, err error) {
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(status, result)
}

func (h *Handler) receive(c *gin.Context) {
	var req receiveRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.handlers.Receive.Handle(c.Request.Context(), application.ReceiveCommand{
		InboundOrderID: req.InboundOrderID,
		Quantity:       req.Quantity,
		LpnID:          req.LpnID,
		SKU:            req.SKU,
		RawScan:        req.RawScan,
		LpnCount:       req.LpnCount,
		UnitsPerLpn:    req.UnitsPerLpn,
		PhotoSample:    req.PhotoSample,
		Attributes:     req.Attributes,
		Origin:         origin(c),
	})
	if err != nil && result != nil && len(result.LpnIDs) > 0 {
		h.logger.WithContext(c.Request.Context()).Warn("Receipt partially booked",
			"inboundOrderId", req.InboundOrderID,
			"bookedLpns", result.LpnIDs,
			"error", err,
		)
	}
	respond(c, http.StatusCreated, result, err)
}

func (h *Handler) getLpn(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	lpn, err := h.handlers.Queries.GetLpn(c.Request.Context(), id)
	respond(c, http.StatusOK, lpn, err)
}

func (h *Handler) getHistory(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	records, err := h.handlers.Queries.GetHistory(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lpnId":  id,
		"events": records,
		"count":  len(records),
	})
}

func (h *Handler) listAvailable(c *gin.Context) {
	sku := c.Query("sku")
	if sku == "" {
		middleware.AbortWithAppError(c, errors.ErrValidation("sku query parameter is required"))
		return
	}
	views, err := h.handlers.Queries.ListAvailable(c.Request.Context(), sku)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sku":   sku,
		"lpns":  views,
		"count": len(views),
	})
}

func (h *Handler) putaway(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req putawayRequest
	if !bind(c, &req) {
		return
	}
	lpn, err := h.handlers.Putaway.Handle(c.Request.Context(), application.PutawayCommand{
		LpnID:        id,
		LocationCode: req.LocationCode,
		Origin:       origin(c),
	})
	respond(c, http.StatusOK, lpn, err)
}

func (h *Handler) allocate(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req allocateRequest
	if !bind(c, &req) {
		return
	}
	lpn, err := h.handlers.Allocate.Handle(c.Request.Context(), application.AllocateCommand{
		LpnID:   id,
		OrderID: req.OrderID,
		SKU:     req.SKU,
		Origin:  origin(c),
	})
	respond(c, http.StatusOK, lpn, err)
}

func (h *Handler) pick(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req pickRequest
	if !bind(c, &req) {
		return
	}
	lpn, err := h.handlers.Pick.Handle(c.Request.Context(), application.PickCommand{
		LpnID:          id,
		TaskID:         req.TaskID,
		PickedQuantity: req.PickedQuantity,
		Origin:         origin(c),
	})
	respond(c, http.StatusOK, lpn, err)
}

func (h *Handler) reportCount(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req countRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.handlers.ReportCount.Handle(c.Request.Context(), application.ReportCountCommand{
		LpnID:           id,
		CountedQuantity: req.CountedQuantity,
		Origin:          origin(c),
	})
	respond(c, http.StatusOK, result, err)
}

func (h *Handler) authorizeAdjustment(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req adjustRequest
	if !bind(c, &req) {
		return
	}
	lpn, err := h.handlers.AuthorizeAdjustment.Handle(c.Request.Context(), application.AuthorizeAdjustmentCommand{
		LpnID:       id,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
		Origin:      origin(c),
	})
	respond(c, http.StatusOK, lpn, err)
}

func (h *Handler) void(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req reasonRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.handlers.Void.Handle(c.Request.Context(), application.VoidCommand{
		LpnID:  id,
		Reason: req.Reason,
		Origin: origin(c),
	})
	respond(c, http.StatusOK, result, err)
}

func (h *Handler) quarantine(c *gin.Context) {
	id, ok := lpnID(c)
	if !ok {
		return
	}
	var req reasonRequest
	if !bind(c, &req) {
		return
	}
	lpn, err := h.handlers.Quarantine.Handle(c.Request.Context(), application.QuarantineCommand{
		LpnID:  id,
		Reason: req.Reason,
		Origin: origin(c),
	})
	respond(c, http.StatusOK, lpn, err)
}

func (h *Handler) pack(c *gin.Context) {
	var req packRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.handlers.Pack.Handle(c.Request.Context(), application.PackCommand{
		ParentLpnID: req.ParentLpnID,
		LpnIDs:      req.LpnIDs,
		Origin:      origin(c),
	})
	respond(c, http.StatusOK, result, err)
}

func (h *Handler) dispatch(c *gin.Context) {
	var req dispatchRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.handlers.Dispatch.Handle(c.Request.Context(), application.DispatchCommand{
		OrderID: req.OrderID,
		LpnIDs:  req.LpnIDs,
		Origin:  origin(c),
	})
	respond(c, http.StatusOK, result, err)
}
