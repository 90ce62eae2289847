package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/entity"
)

// AIEstimateRepository defines data operations for estimates. Estimates are
// append-only per market.
type AIEstimateRepository interface {
	Create(ctx context.Context, estimate *entity.AIEstimate) error
	FindLatestByMarket(ctx context.Context, marketID int64) (*entity.AIEstimate, error)
	FindByMarket(ctx context.Context, marketID int64) ([]entity.AIEstimate, error)
}

// NewAIEstimateRepository creates a new GORM-based estimate repository.
func NewAIEstimateRepository(db *gorm.DB) AIEstimateRepository {
	return &aiEstimateRepository{db: db}
}

type aiEstimateRepository struct {
	db *gorm.DB
}

// Create appends one estimate.
func (r *aiEstimateRepository) Create(ctx context.Context, estimate *entity.AIEstimate) error {
	return r.db.WithContext(ctx).Create(estimate).Error
}

// FindLatestByMarket returns the most recent estimate for a market.
func (r *aiEstimateRepository) FindLatestByMarket(ctx context.Context, marketID int64) (*entity.AIEstimate, error) {
	var estimate entity.AIEstimate
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at DESC").
		First(&estimate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("market %d has no estimate: %w", marketID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &estimate, nil
}

// FindByMarket returns all estimates for a market, newest first.
func (r *aiEstimateRepository) FindByMarket(ctx context.Context, marketID int64) ([]entity.AIEstimate, error) {
	var estimates []entity.AIEstimate
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at DESC").
		Find(&estimates).Error
	if err != nil {
		return nil, err
	}
	return estimates, nil
}
