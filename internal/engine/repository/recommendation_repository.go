package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/entity"
)

// RecommendationRepository defines data operations for recommendations. The
// multi-row transitions run inside transactions so a partially written
// recommendation is never observable.
type RecommendationRepository interface {
	// CreateExclusive expires any active recommendation for the same market
	// and creates the new one in a single transaction, preserving the
	// at-most-one-active-per-market invariant.
	CreateExclusive(ctx context.Context, rec *entity.Recommendation) error
	// ResolveForMarket resolves the active recommendation for the market (or
	// the most recent one when none is active) and stamps the outcome.
	ResolveForMarket(ctx context.Context, marketID int64, outcome bool, at time.Time) error
	FindByID(ctx context.Context, id int64) (*entity.Recommendation, error)
	FindActiveByMarket(ctx context.Context, marketID int64) (*entity.Recommendation, error)
	FindAll(ctx context.Context, status entity.RecommendationStatus) ([]entity.Recommendation, error)
	FindResolved(ctx context.Context) ([]entity.Recommendation, error)
}

// NewRecommendationRepository creates a new GORM-based recommendation
// repository.
func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

type recommendationRepository struct {
	db *gorm.DB
}

// CreateExclusive expires the prior active recommendation (if any) and
// creates the new one transactionally.
func (r *recommendationRepository) CreateExclusive(ctx context.Context, rec *entity.Recommendation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&entity.Recommendation{}).
			Where("market_id = ? AND status = ?", rec.MarketID, entity.RecommendationStatusActive).
			Update("status", entity.RecommendationStatusExpired).Error
		if err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

// ResolveForMarket marks the market's active (else most recent)
// recommendation as resolved with the realized outcome.
func (r *recommendationRepository) ResolveForMarket(ctx context.Context, marketID int64, outcome bool, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec entity.Recommendation
		err := tx.Where("market_id = ? AND status = ?", marketID, entity.RecommendationStatusActive).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("market_id = ?", marketID).
				Order("created_at DESC").
				First(&rec).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The market never produced a recommendation; nothing to score.
			return nil
		}
		if err != nil {
			return err
		}

		return tx.Model(&rec).Updates(map[string]interface{}{
			"status":      entity.RecommendationStatusResolved,
			"outcome":     outcome,
			"resolved_at": at,
		}).Error
	})
}

// FindByID retrieves a recommendation by its ID.
func (r *recommendationRepository) FindByID(ctx context.Context, id int64) (*entity.Recommendation, error) {
	var rec entity.Recommendation
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recommendation %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// FindActiveByMarket returns the single active recommendation for a market.
func (r *recommendationRepository) FindActiveByMarket(ctx context.Context, marketID int64) (*entity.Recommendation, error) {
	var rec entity.Recommendation
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, entity.RecommendationStatusActive).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active recommendation for market %d: %w", marketID, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// FindAll retrieves recommendations, optionally filtered by status.
func (r *recommendationRepository) FindAll(ctx context.Context, status entity.RecommendationStatus) ([]entity.Recommendation, error) {
	var recs []entity.Recommendation
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// FindResolved retrieves resolved recommendations for performance scoring.
func (r *recommendationRepository) FindResolved(ctx context.Context) ([]entity.Recommendation, error) {
	return r.FindAll(ctx, entity.RecommendationStatusResolved)
}
