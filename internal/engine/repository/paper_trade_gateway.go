package repository

import (
	"context"
	"fmt"
	"math"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// paperTradeGateway is a TradeGatewayRepository that simulates fills at the
// latest captured market price. It enforces the same failure surface as a
// real exchange gateway so the trade service behaves identically when one is
// plugged in.
type paperTradeGateway struct {
	marketRepo   MarketRepository
	snapshotRepo MarketSnapshotRepository
	settingsRepo EngineSettingsRepository
	logger       *logger.Logger
}

// NewPaperTradeGateway creates a simulated execution gateway.
func NewPaperTradeGateway(marketRepo MarketRepository, snapshotRepo MarketSnapshotRepository, settingsRepo EngineSettingsRepository, log *logger.Logger) TradeGatewayRepository {
	return &paperTradeGateway{
		marketRepo:   marketRepo,
		snapshotRepo: snapshotRepo,
		settingsRepo: settingsRepo,
		logger:       log,
	}
}

// ExecuteTrade fills the order at the latest snapshot price of the
// recommendation's market.
func (g *paperTradeGateway) ExecuteTrade(ctx context.Context, rec *entity.Recommendation, amount float64) (*dto.TradeExecution, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount %v must be positive", apperrors.ErrOrderRejected, amount)
	}

	settings, err := g.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load settings: %v", apperrors.ErrOrderRejected, err)
	}
	if amount > settings.Bankroll {
		return nil, fmt.Errorf("%w: amount %.2f exceeds bankroll %.2f", apperrors.ErrInsufficientFunds, amount, settings.Bankroll)
	}

	market, err := g.marketRepo.FindByID(ctx, rec.MarketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrOrderRejected, err)
	}
	if market.Status != entity.MarketStatusActive {
		return nil, fmt.Errorf("%w: market %d is %s", apperrors.ErrOrderRejected, market.ID, market.Status)
	}

	snapshot, err := g.snapshotRepo.FindLatestByMarket(ctx, rec.MarketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrOrderRejected, err)
	}

	price := snapshot.Price
	if rec.Direction == entity.DirectionNo {
		price = 1 - snapshot.Price
	}
	if price <= 0 || price >= 1 {
		return nil, fmt.Errorf("%w: degenerate price %.4f", apperrors.ErrOrderRejected, price)
	}

	contracts := amount / price
	exec := &dto.TradeExecution{
		Contracts:  contracts,
		PriceCents: int(math.Round(price * 100)),
		TotalCost:  amount,
	}
	g.logger.Info("Paper fill",
		logger.Field("recommendation_id", rec.ID),
		logger.Float64Field("price", price),
		logger.Float64Field("contracts", contracts),
	)
	return exec, nil
}
