package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/service"
	"market-edge-engine/pkg/logger"
)

// SettingsHandler handles HTTP requests for the engine settings.
type SettingsHandler struct {
	settingsService service.SettingsService
	logger          *logger.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService service.SettingsService, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, logger: logger}
}

// RegisterRoutes registers the settings routes to the Echo group.
func (h *SettingsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSettings)
	g.PUT("", h.UpdateSettings)
}

// GetSettings godoc
// @Summary Get the engine settings
// @Description Get the runtime decision thresholds
// @Tags settings
// @Produce  json
// @Success 200 {object} entity.EngineSettings
// @Failure 500 {object} dto.ErrorResponse
// @Router /settings [get]
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	settings, err := h.settingsService.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get settings", logger.ErrorField(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update the engine settings
// @Description Update the runtime decision thresholds; omitted fields keep their values
// @Tags settings
// @Accept  json
// @Produce  json
// @Param   settings  body    dto.UpdateSettingsRequest   true    "Fields to update"
// @Success 200 {object} entity.EngineSettings
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /settings [put]
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	var req dto.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	settings, err := h.settingsService.Update(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}
