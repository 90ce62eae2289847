package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/entity"
)

// MarketSnapshotRepository defines data operations for snapshots. Snapshots
// are append-only; there is no update or delete.
type MarketSnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.MarketSnapshot) error
	CreateBatch(ctx context.Context, snapshots []entity.MarketSnapshot) error
	FindLatestByMarket(ctx context.Context, marketID int64) (*entity.MarketSnapshot, error)
	FindByMarket(ctx context.Context, marketID int64, limit int) ([]entity.MarketSnapshot, error)
}

// NewMarketSnapshotRepository creates a new GORM-based snapshot repository.
func NewMarketSnapshotRepository(db *gorm.DB) MarketSnapshotRepository {
	return &marketSnapshotRepository{db: db}
}

type marketSnapshotRepository struct {
	db *gorm.DB
}

// Create appends one snapshot.
func (r *marketSnapshotRepository) Create(ctx context.Context, snapshot *entity.MarketSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// CreateBatch appends many snapshots in one statement.
func (r *marketSnapshotRepository) CreateBatch(ctx context.Context, snapshots []entity.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&snapshots).Error
}

// FindLatestByMarket returns the most recent snapshot for a market. A market
// with no snapshot yet yields apperrors.ErrNoData.
func (r *marketSnapshotRepository) FindLatestByMarket(ctx context.Context, marketID int64) (*entity.MarketSnapshot, error) {
	var snapshot entity.MarketSnapshot
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("captured_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("market %d has no snapshot: %w", marketID, apperrors.ErrNoData)
		}
		return nil, err
	}
	return &snapshot, nil
}

// FindByMarket returns snapshots for a market, newest first.
func (r *marketSnapshotRepository) FindByMarket(ctx context.Context, marketID int64, limit int) ([]entity.MarketSnapshot, error) {
	var snapshots []entity.MarketSnapshot
	q := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("captured_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
