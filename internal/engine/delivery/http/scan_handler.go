package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/engine/service"
	"market-edge-engine/pkg/logger"
)

// ScanHandler handles HTTP requests for scan jobs.
type ScanHandler struct {
	scanService service.ScanService
	logger      *logger.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(scanService service.ScanService, logger *logger.Logger) *ScanHandler {
	return &ScanHandler{scanService: scanService, logger: logger}
}

// RegisterRoutes registers the scan routes to the Echo group.
func (h *ScanHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.TriggerScan)
	g.GET("/status", h.GetScanStatus)
}

// TriggerScan godoc
// @Summary Trigger a market scan
// @Description Start a scan job; at most one runs at a time
// @Tags scan
// @Produce  json
// @Success 202 {object} dto.TriggerScanResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scan [post]
func (h *ScanHandler) TriggerScan(c echo.Context) error {
	resp, err := h.scanService.Trigger(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, resp)
}

// GetScanStatus godoc
// @Summary Get scan progress
// @Description Get the progress of the current or most recent scan job
// @Tags scan
// @Produce  json
// @Success 200 {object} dto.ScanProgress
// @Failure 500 {object} dto.ErrorResponse
// @Router /scan/status [get]
func (h *ScanHandler) GetScanStatus(c echo.Context) error {
	progress, err := h.scanService.Progress(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get scan progress", logger.ErrorField(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, progress)
}
