package entity

import "time"

// TradeStatus is the lifecycle status of a user trade.
type TradeStatus string

const (
	TradeStatusOpen      TradeStatus = "open"
	TradeStatusClosed    TradeStatus = "closed"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// Trade is real capital placed by the user, optionally linked to the
// recommendation that prompted it.
type Trade struct {
	ID               int64       `gorm:"primaryKey" json:"id"`
	Platform         Platform    `gorm:"not null" json:"platform"`
	MarketID         int64       `gorm:"not null;index" json:"market_id"`
	RecommendationID *int64      `gorm:"index" json:"recommendation_id,omitempty"`
	Direction        Direction   `gorm:"not null" json:"direction"`
	EntryPrice       float64     `gorm:"not null" json:"entry_price"`
	Amount           float64     `gorm:"not null" json:"amount"`
	Contracts        float64     `json:"contracts"`
	Status           TradeStatus `gorm:"not null;default:open" json:"status"`
	ExitPrice        *float64    `json:"exit_price,omitempty"`
	PnL              *float64    `json:"pnl,omitempty"`
	Fees             *float64    `json:"fees,omitempty"`
	CreatedAt        time.Time   `gorm:"autoCreateTime" json:"created_at"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
}

// TableName specifies the table name for the Trade model.
func (Trade) TableName() string {
	return "trades"
}
