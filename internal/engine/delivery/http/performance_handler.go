package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/engine/service"
	"market-edge-engine/pkg/logger"
)

// PerformanceHandler handles HTTP requests for performance reports.
type PerformanceHandler struct {
	performanceService service.PerformanceService
	logger             *logger.Logger
}

// NewPerformanceHandler creates a new PerformanceHandler.
func NewPerformanceHandler(performanceService service.PerformanceService, logger *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{performanceService: performanceService, logger: logger}
}

// RegisterRoutes registers the performance routes to the Echo group.
func (h *PerformanceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetReport)
	g.GET("/calibration", h.GetCalibration)
}

// GetReport godoc
// @Summary Get the performance report
// @Description Aggregate resolved recommendations and closed trades
// @Tags performance
// @Produce  json
// @Success 200 {object} dto.PerformanceReport
// @Failure 500 {object} dto.ErrorResponse
// @Router /performance [get]
func (h *PerformanceHandler) GetReport(c echo.Context) error {
	report, err := h.performanceService.Report(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to build performance report", logger.ErrorField(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// GetCalibration godoc
// @Summary Get the calibration report
// @Description Bucket resolved recommendations by predicted probability
// @Tags performance
// @Produce  json
// @Param   bucket_width  query   number  false   "Bucket width, defaults to 0.1"
// @Success 200 {object} dto.CalibrationReport
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /performance/calibration [get]
func (h *PerformanceHandler) GetCalibration(c echo.Context) error {
	var bucketWidth float64
	if raw := c.QueryParam("bucket_width"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid bucket_width"})
		}
		bucketWidth = parsed
	}

	report, err := h.performanceService.Calibration(c.Request().Context(), bucketWidth)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
