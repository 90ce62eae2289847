package service

import (
	"context"
	"errors"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// MarketService is the read side for markets.
type MarketService interface {
	GetAll(ctx context.Context, status entity.MarketStatus) ([]entity.Market, error)
	GetDetail(ctx context.Context, id int64) (*dto.MarketDetail, error)
}

// NewMarketService creates a new market service.
func NewMarketService(
	marketRepo repository.MarketRepository,
	snapshotRepo repository.MarketSnapshotRepository,
	estimateRepo repository.AIEstimateRepository,
	log *logger.Logger,
) MarketService {
	return &marketService{
		marketRepo:   marketRepo,
		snapshotRepo: snapshotRepo,
		estimateRepo: estimateRepo,
		logger:       log,
	}
}

type marketService struct {
	marketRepo   repository.MarketRepository
	snapshotRepo repository.MarketSnapshotRepository
	estimateRepo repository.AIEstimateRepository
	logger       *logger.Logger
}

// GetAll retrieves markets, optionally filtered by status.
func (s *marketService) GetAll(ctx context.Context, status entity.MarketStatus) ([]entity.Market, error) {
	return s.marketRepo.FindAll(ctx, status)
}

// GetDetail retrieves one market with its latest snapshot and estimate. A
// market without snapshots or estimates yet still resolves; the attachments
// are simply absent.
func (s *marketService) GetDetail(ctx context.Context, id int64) (*dto.MarketDetail, error) {
	market, err := s.marketRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &dto.MarketDetail{Market: *market}

	snapshot, err := s.snapshotRepo.FindLatestByMarket(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrNoData) {
		return nil, err
	}
	detail.LatestSnapshot = snapshot

	estimate, err := s.estimateRepo.FindLatestByMarket(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	detail.LatestEstimate = estimate

	return detail, nil
}
