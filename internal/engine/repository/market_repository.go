package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/entity"
)

// MarketRepository defines data operations for markets.
type MarketRepository interface {
	Upsert(ctx context.Context, market *entity.Market) error
	FindByID(ctx context.Context, id int64) (*entity.Market, error)
	FindByPlatformID(ctx context.Context, platform entity.Platform, platformID string) (*entity.Market, error)
	FindAll(ctx context.Context, status entity.MarketStatus) ([]entity.Market, error)
	FindUnresolved(ctx context.Context) ([]entity.Market, error)
	MarkResolved(ctx context.Context, id int64, outcome bool, at time.Time) error
}

// NewMarketRepository creates a new GORM-based market repository.
func NewMarketRepository(db *gorm.DB) MarketRepository {
	return &marketRepository{db: db}
}

type marketRepository struct {
	db *gorm.DB
}

// Upsert creates the market on first sighting; on conflict it refreshes only
// the mutable fields, never the question text.
func (r *marketRepository) Upsert(ctx context.Context, market *entity.Market) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "platform_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "close_time", "updated_at"}),
	}).Create(market).Error
}

// FindByID retrieves a market by its ID.
func (r *marketRepository) FindByID(ctx context.Context, id int64) (*entity.Market, error) {
	var market entity.Market
	if err := r.db.WithContext(ctx).First(&market, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("market %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &market, nil
}

// FindByPlatformID retrieves a market by its platform-native identity.
func (r *marketRepository) FindByPlatformID(ctx context.Context, platform entity.Platform, platformID string) (*entity.Market, error) {
	var market entity.Market
	err := r.db.WithContext(ctx).
		Where("platform = ? AND platform_id = ?", platform, platformID).
		First(&market).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("market %s/%s: %w", platform, platformID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &market, nil
}

// FindAll retrieves markets, optionally filtered by status.
func (r *marketRepository) FindAll(ctx context.Context, status entity.MarketStatus) ([]entity.Market, error) {
	var markets []entity.Market
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

// FindUnresolved retrieves markets still awaiting resolution.
func (r *marketRepository) FindUnresolved(ctx context.Context) ([]entity.Market, error) {
	var markets []entity.Market
	err := r.db.WithContext(ctx).
		Where("status <> ?", entity.MarketStatusResolved).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// MarkResolved transitions a market to resolved with its realized outcome.
// Status and outcome change together so the resolved-implies-outcome
// invariant holds at every commit point.
func (r *marketRepository) MarkResolved(ctx context.Context, id int64, outcome bool, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Market{}).
		Where("id = ? AND status <> ?", id, entity.MarketStatusResolved).
		Updates(map[string]interface{}{
			"status":     entity.MarketStatusResolved,
			"outcome":    outcome,
			"updated_at": at,
		}).Error
}
