package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/engine/service"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// MarketHandler handles HTTP requests for markets.
type MarketHandler struct {
	marketService service.MarketService
	logger        *logger.Logger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketService service.MarketService, logger *logger.Logger) *MarketHandler {
	return &MarketHandler{marketService: marketService, logger: logger}
}

// RegisterRoutes registers the market routes to the Echo group.
func (h *MarketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAllMarkets)
	g.GET("/:id", h.GetMarketByID)
}

// GetAllMarkets godoc
// @Summary List markets
// @Description List ingested markets, optionally filtered by status
// @Tags markets
// @Produce  json
// @Param   status  query   string  false   "active, closed or resolved"
// @Success 200 {array} entity.Market
// @Failure 500 {object} dto.ErrorResponse
// @Router /markets [get]
func (h *MarketHandler) GetAllMarkets(c echo.Context) error {
	status := entity.MarketStatus(c.QueryParam("status"))
	markets, err := h.marketService.GetAll(c.Request().Context(), status)
	if err != nil {
		h.logger.Error("Failed to list markets", logger.ErrorField(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, markets)
}

// GetMarketByID godoc
// @Summary Get a market by ID
// @Description Get a market with its latest snapshot and estimate
// @Tags markets
// @Produce  json
// @Param   id  path    int true    "Market ID"
// @Success 200 {object} dto.MarketDetail
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /markets/{id} [get]
func (h *MarketHandler) GetMarketByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid market ID"})
	}

	detail, err := h.marketService.GetDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}
