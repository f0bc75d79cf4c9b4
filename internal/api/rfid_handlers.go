package api

import (
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/lpn-service/internal/application"
	"github.com/wms-platform/lpn-service/internal/rfid"
	"github.com/wms-platform/lpn-service/pkg/errors"
)

type rfidReadsRequest struct {
	ReaderID string   `json:"readerId" binding:"required"`
	EPCs     []string `json:"epcs" binding:"required,min=1,max=1000"`
}

type decodedRead struct {
	EPC           string `json:"epc"`
	SKU           string `json:"sku"`
	Serial        uint64 `json:"serial"`
	Filter        uint8  `json:"filter"`
	CompanyPrefix uint64 `json:"companyPrefix"`
	ItemReference uint64 `json:"itemReference"`
}

type rejectedRead struct {
	EPC     string `json:"epc"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rfidReadsResponse struct {
	ReaderID   string         `json:"readerId"`
	Accepted   []decodedRead  `json:"accepted"`
	Duplicates int            `json:"duplicates"`
	Rejected   []rejectedRead `json:"rejected"`
}

// rfidReads decodes a reader batch. Repeat reads inside the debounce window
// are counted but not returned, and one bad tag never fails the batch.
func (h *Handler) rfidReads(c *gin.Context) {
	var req rfidReadsRequest
	if !bind(c, &req) {
		return
	}

	resp := rfidReadsResponse{
		ReaderID: req.ReaderID,
		Accepted: []decodedRead{},
		Rejected: []rejectedRead{},
	}

	var epcs []string
	for _, raw := range req.EPCs {
		epc := strings.ToUpper(strings.TrimSpace(raw))
		if rfid.Classify(epc) != rfid.ScanRFID {
			resp.Rejected = append(resp.Rejected, rejectedRead{
				EPC:     raw,
				Code:    errors.CodeMalformedEpc,
				Message: "scan is not an EPC",
			})
			h.metrics.RecordRFIDRead("rejected")
			continue
		}
		epcs = append(epcs, epc)
	}

	decoded, rejected := rfid.ParseBatch(epcs)
	for _, read := range decoded {
		if !h.debouncer.ShouldProcess(read.EPC, h.rfidWindow) {
			resp.Duplicates++
			h.metrics.RecordRFIDRead("duplicate")
			continue
		}
		resp.Accepted = append(resp.Accepted, decodedRead{
			EPC:           read.EPC,
			SKU:           read.Tag.SKU(),
			Serial:        read.Tag.Serial,
			Filter:        read.Tag.Filter,
			CompanyPrefix: read.Tag.CompanyPrefix,
			ItemReference: read.Tag.ItemReference,
		})
		h.metrics.RecordRFIDRead("accepted")
	}

	for _, epc := range slices.Sorted(maps.Keys(rejected)) {
		appErr := errors.FromError(application.MapError(rejected[epc]))
		resp.Rejected = append(resp.Rejected, rejectedRead{
			EPC:     epc,
			Code:    appErr.Code,
			Message: rejected[epc].Error(),
		})
		h.metrics.RecordRFIDRead("rejected")
	}

	if len(resp.Rejected) > 0 {
		h.logger.WithContext(c.Request.Context()).Warn("Rejected RFID reads",
			"readerId", req.ReaderID,
			"rejected", len(resp.Rejected),
		)
	}
	c.JSON(http.StatusOK, resp)
}
