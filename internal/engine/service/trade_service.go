package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// TradeService records the user's real bets. A linked trade goes through the
// trade gateway for its fill; an unlinked one is a manual record and must
// carry its own entry price. Trading is always user-initiated, never done by
// the scan loop.
type TradeService interface {
	Create(ctx context.Context, req *dto.CreateTradeRequest) (*entity.Trade, error)
	Close(ctx context.Context, id int64, req *dto.CloseTradeRequest) (*entity.Trade, error)
	GetByID(ctx context.Context, id int64) (*entity.Trade, error)
	GetAll(ctx context.Context, status entity.TradeStatus) ([]entity.Trade, error)
}

// NewTradeService creates a new trade service.
func NewTradeService(
	tradeRepo repository.TradeRepository,
	marketRepo repository.MarketRepository,
	recommendationRepo repository.RecommendationRepository,
	gateway repository.TradeGatewayRepository,
	log *logger.Logger,
) TradeService {
	return &tradeService{
		tradeRepo:          tradeRepo,
		marketRepo:         marketRepo,
		recommendationRepo: recommendationRepo,
		gateway:            gateway,
		logger:             log,
	}
}

type tradeService struct {
	tradeRepo          repository.TradeRepository
	marketRepo         repository.MarketRepository
	recommendationRepo repository.RecommendationRepository
	gateway            repository.TradeGatewayRepository
	logger             *logger.Logger
}

// Create places a bet. The recommendation link, when present, pins the
// market and direction; mismatching request fields are rejected.
func (s *tradeService) Create(ctx context.Context, req *dto.CreateTradeRequest) (*entity.Trade, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", apperrors.ErrInvalidInput)
	}
	direction := entity.Direction(req.Direction)
	if direction != entity.DirectionYes && direction != entity.DirectionNo {
		return nil, fmt.Errorf("direction must be yes or no: %w", apperrors.ErrInvalidInput)
	}

	if req.RecommendationID != nil {
		return s.createLinked(ctx, req, direction)
	}
	return s.createManual(ctx, req, direction)
}

func (s *tradeService) createLinked(ctx context.Context, req *dto.CreateTradeRequest, direction entity.Direction) (*entity.Trade, error) {
	rec, err := s.recommendationRepo.FindByID(ctx, *req.RecommendationID)
	if err != nil {
		return nil, err
	}
	if req.MarketID != 0 && req.MarketID != rec.MarketID {
		return nil, fmt.Errorf("market does not match recommendation: %w", apperrors.ErrInvalidInput)
	}
	market, err := s.marketRepo.FindByID(ctx, rec.MarketID)
	if err != nil {
		return nil, err
	}

	execution, err := s.gateway.ExecuteTrade(ctx, rec, req.Amount)
	if err != nil {
		return nil, err
	}

	trade := &entity.Trade{
		Platform:         market.Platform,
		MarketID:         rec.MarketID,
		RecommendationID: &rec.ID,
		Direction:        direction,
		EntryPrice:       float64(execution.PriceCents) / 100,
		Amount:           execution.TotalCost,
		Contracts:        execution.Contracts,
		Status:           entity.TradeStatusOpen,
		CreatedAt:        time.Now(),
	}
	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		return nil, err
	}

	s.logger.Info("Trade placed",
		logger.Field("trade_id", trade.ID),
		logger.Field("recommendation_id", rec.ID),
		logger.Float64Field("amount", trade.Amount),
		logger.Float64Field("entry_price", trade.EntryPrice),
	)
	return trade, nil
}

func (s *tradeService) createManual(ctx context.Context, req *dto.CreateTradeRequest, direction entity.Direction) (*entity.Trade, error) {
	if req.EntryPrice == nil {
		return nil, fmt.Errorf("entry_price is required without a recommendation: %w", apperrors.ErrInvalidInput)
	}
	if *req.EntryPrice <= 0 || *req.EntryPrice >= 1 {
		return nil, fmt.Errorf("entry_price must be in (0, 1): %w", apperrors.ErrInvalidInput)
	}
	market, err := s.marketRepo.FindByID(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}

	trade := &entity.Trade{
		Platform:   market.Platform,
		MarketID:   market.ID,
		Direction:  direction,
		EntryPrice: *req.EntryPrice,
		Amount:     req.Amount,
		Contracts:  req.Amount / *req.EntryPrice,
		Status:     entity.TradeStatusOpen,
		CreatedAt:  time.Now(),
	}
	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		return nil, err
	}

	s.logger.Info("Manual trade recorded",
		logger.Field("trade_id", trade.ID),
		logger.Field("market_id", market.ID),
		logger.Float64Field("amount", trade.Amount),
	)
	return trade, nil
}

// Close settles an open trade at the given exit price. P&L is the contract
// count times the price move, minus fees; closing a non-open trade is a
// conflict.
func (s *tradeService) Close(ctx context.Context, id int64, req *dto.CloseTradeRequest) (*entity.Trade, error) {
	if req.ExitPrice < 0 || req.ExitPrice > 1 {
		return nil, fmt.Errorf("exit_price must be in [0, 1]: %w", apperrors.ErrInvalidInput)
	}
	if req.Fees != nil && *req.Fees < 0 {
		return nil, fmt.Errorf("fees must not be negative: %w", apperrors.ErrInvalidInput)
	}

	trade, err := s.tradeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade.Status != entity.TradeStatusOpen {
		return nil, fmt.Errorf("trade %d is %s: %w", id, trade.Status, apperrors.ErrConflict)
	}

	pnl := trade.Contracts * (req.ExitPrice - trade.EntryPrice)
	if req.Fees != nil {
		pnl -= *req.Fees
	}

	now := time.Now()
	if err := s.tradeRepo.Close(ctx, id, req.ExitPrice, pnl, req.Fees, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("trade %d already closed: %w", id, apperrors.ErrConflict)
		}
		return nil, err
	}

	trade.Status = entity.TradeStatusClosed
	trade.ExitPrice = &req.ExitPrice
	trade.PnL = &pnl
	trade.Fees = req.Fees
	trade.ClosedAt = &now

	s.logger.Info("Trade closed",
		logger.Field("trade_id", id),
		logger.Float64Field("exit_price", req.ExitPrice),
		logger.Float64Field("pnl", pnl),
	)
	return trade, nil
}

// GetByID retrieves one trade.
func (s *tradeService) GetByID(ctx context.Context, id int64) (*entity.Trade, error) {
	return s.tradeRepo.FindByID(ctx, id)
}

// GetAll retrieves trades, optionally filtered by status.
func (s *tradeService) GetAll(ctx context.Context, status entity.TradeStatus) ([]entity.Trade, error) {
	return s.tradeRepo.FindAll(ctx, status)
}
