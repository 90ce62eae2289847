package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/engine/service"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// RecommendationHandler handles HTTP requests for recommendations.
type RecommendationHandler struct {
	recommendationService service.RecommendationService
	logger                *logger.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendationService service.RecommendationService, logger *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService, logger: logger}
}

// RegisterRoutes registers the recommendation routes to the Echo group.
func (h *RecommendationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAllRecommendations)
	g.GET("/:id", h.GetRecommendationByID)
}

// GetAllRecommendations godoc
// @Summary List recommendations
// @Description List recommendations, optionally filtered by status
// @Tags recommendations
// @Produce  json
// @Param   status  query   string  false   "active, expired or resolved"
// @Success 200 {array} entity.Recommendation
// @Failure 500 {object} dto.ErrorResponse
// @Router /recommendations [get]
func (h *RecommendationHandler) GetAllRecommendations(c echo.Context) error {
	status := entity.RecommendationStatus(c.QueryParam("status"))
	recs, err := h.recommendationService.GetAll(c.Request().Context(), status)
	if err != nil {
		h.logger.Error("Failed to list recommendations", logger.ErrorField(err))
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

// GetRecommendationByID godoc
// @Summary Get a recommendation by ID
// @Description Get a single recommendation by its ID
// @Tags recommendations
// @Produce  json
// @Param   id  path    int true    "Recommendation ID"
// @Success 200 {object} entity.Recommendation
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /recommendations/{id} [get]
func (h *RecommendationHandler) GetRecommendationByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid recommendation ID"})
	}

	rec, err := h.recommendationService.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
