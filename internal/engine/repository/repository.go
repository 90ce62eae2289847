package repository

import (
	"context"

	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/entity"
)

// MarketSourceRepository pulls markets and current prices from one platform.
// Transport failures wrap apperrors.ErrPlatformUnavailable; the orchestrator
// treats them as that platform contributing zero markets.
type MarketSourceRepository interface {
	Platform() entity.Platform
	// FetchMarkets returns parallel slices: snapshots[i] belongs to
	// markets[i]. MarketID on the snapshot is filled by the caller once the
	// market row exists.
	FetchMarkets(ctx context.Context, limit int) ([]entity.Market, []entity.MarketSnapshot, error)
	// FetchResolution returns the realized outcome of a market, or nil when
	// the platform has not resolved it yet.
	FetchResolution(ctx context.Context, platformID string) (*bool, error)
}

// EstimatorRepository produces an independent probability estimate for a
// market. Failures wrap apperrors.ErrEstimationFailed.
type EstimatorRepository interface {
	Estimate(ctx context.Context, market *entity.Market, researchBudget int) (*dto.EstimateResult, error)
}

// ResearchRepository gathers question-relevant articles for the estimator
// prompt, bounded by the research budget.
type ResearchRepository interface {
	Gather(ctx context.Context, question string, maxArticles int) ([]dto.ResearchArticle, error)
}

// TradeGatewayRepository executes a real bet for a recommendation. Errors are
// apperrors.ErrOrderRejected or apperrors.ErrInsufficientFunds; it is only
// invoked on an explicit user action, never by the scan loop.
type TradeGatewayRepository interface {
	ExecuteTrade(ctx context.Context, rec *entity.Recommendation, amount float64) (*dto.TradeExecution, error)
}
