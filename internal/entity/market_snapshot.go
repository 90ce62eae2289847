package entity

import "time"

// MarketSnapshot is a point-in-time price capture for a market. Snapshots are
// append-only; they are never mutated or deleted.
type MarketSnapshot struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	MarketID   int64     `gorm:"not null;index:idx_snapshots_market_time" json:"market_id"`
	Price      float64   `gorm:"not null" json:"price"`
	Volume     float64   `json:"volume"`
	Liquidity  float64   `json:"liquidity"`
	CapturedAt time.Time `gorm:"not null;index:idx_snapshots_market_time" json:"captured_at"`
}

// TableName specifies the table name for the MarketSnapshot model.
func (MarketSnapshot) TableName() string {
	return "market_snapshots"
}
