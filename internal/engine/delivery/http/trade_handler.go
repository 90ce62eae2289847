package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/service"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// TradeHandler handles HTTP requests for trades.
type TradeHandler struct {
	tradeService service.TradeService
	logger       *logger.Logger
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeService service.TradeService, logger *logger.Logger) *TradeHandler {
	return &TradeHandler{tradeService: tradeService, logger: logger}
}

// RegisterRoutes registers the trade routes to the Echo group.
func (h *TradeHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateTrade)
	g.GET("", h.GetAllTrades)
	g.GET("/:id", h.GetTradeByID)
	g.POST("/:id/close", h.CloseTrade)
}

// CreateTrade godoc
// @Summary Place a trade
// @Description Place a bet, either linked to a recommendation or recorded manually
// @Tags trades
// @Accept  json
// @Produce  json
// @Param   trade  body    dto.CreateTradeRequest   true    "Trade to place"
// @Success 201 {object} entity.Trade
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /trades [post]
func (h *TradeHandler) CreateTrade(c echo.Context) error {
	var req dto.CreateTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	trade, err := h.tradeService.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, trade)
}

// GetAllTrades godoc
// @Summary List trades
// @Description List trades, optionally filtered by status
// @Tags trades
// @Produce  json
// @Param   status  query   string  false   "open, closed or cancelled"
// @Success 200 {array} entity.Trade
// @Failure 500 {object} dto.ErrorResponse
// @Router /trades [get]
func (h *TradeHandler) GetAllTrades(c echo.Context) error {
	status := entity.TradeStatus(c.QueryParam("status"))
	trades, err := h.tradeService.GetAll(c.Request().Context(), status)
	if err != nil {
		h.logger.Error("Failed to list trades", logger.ErrorField(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, trades)
}

// GetTradeByID godoc
// @Summary Get a trade by ID
// @Description Get a single trade by its ID
// @Tags trades
// @Produce  json
// @Param   id  path    int true    "Trade ID"
// @Success 200 {object} entity.Trade
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /trades/{id} [get]
func (h *TradeHandler) GetTradeByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid trade ID"})
	}

	trade, err := h.tradeService.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, trade)
}

// CloseTrade godoc
// @Summary Close a trade
// @Description Close an open trade at the given exit price
// @Tags trades
// @Accept  json
// @Produce  json
// @Param   id  path    int true    "Trade ID"
// @Param   close  body    dto.CloseTradeRequest   true    "Exit price and fees"
// @Success 200 {object} entity.Trade
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /trades/{id}/close [post]
func (h *TradeHandler) CloseTrade(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid trade ID"})
	}

	var req dto.CloseTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	trade, err := h.tradeService.Close(c.Request().Context(), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, trade)
}
