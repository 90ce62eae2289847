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

// TradeRepository defines data operations for user trades.
type TradeRepository interface {
	Create(ctx context.Context, trade *entity.Trade) error
	FindByID(ctx context.Context, id int64) (*entity.Trade, error)
	FindAll(ctx context.Context, status entity.TradeStatus) ([]entity.Trade, error)
	FindClosed(ctx context.Context) ([]entity.Trade, error)
	Close(ctx context.Context, id int64, exitPrice, pnl float64, fees *float64, at time.Time) error
}

// NewTradeRepository creates a new GORM-based trade repository.
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

type tradeRepository struct {
	db *gorm.DB
}

// Create persists a new trade.
func (r *tradeRepository) Create(ctx context.Context, trade *entity.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// FindByID retrieves a trade by its ID.
func (r *tradeRepository) FindByID(ctx context.Context, id int64) (*entity.Trade, error) {
	var trade entity.Trade
	if err := r.db.WithContext(ctx).First(&trade, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trade %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &trade, nil
}

// FindAll retrieves trades, optionally filtered by status.
func (r *tradeRepository) FindAll(ctx context.Context, status entity.TradeStatus) ([]entity.Trade, error) {
	var trades []entity.Trade
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// FindClosed retrieves closed trades for P&L aggregation.
func (r *tradeRepository) FindClosed(ctx context.Context) ([]entity.Trade, error) {
	return r.FindAll(ctx, entity.TradeStatusClosed)
}

// Close transitions an open trade to closed with its realized P&L in one
// guarded update; a trade that is not open is left untouched.
func (r *tradeRepository) Close(ctx context.Context, id int64, exitPrice, pnl float64, fees *float64, at time.Time) error {
	updates := map[string]interface{}{
		"status":     entity.TradeStatusClosed,
		"exit_price": exitPrice,
		"pnl":        pnl,
		"closed_at":  at,
	}
	if fees != nil {
		updates["fees"] = *fees
	}
	res := r.db.WithContext(ctx).Model(&entity.Trade{}).
		Where("id = ? AND status = ?", id, entity.TradeStatusOpen).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trade %d is not open: %w", id, apperrors.ErrConflict)
	}
	return nil
}
