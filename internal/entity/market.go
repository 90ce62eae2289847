package entity

import "time"

// Platform identifies a prediction-market venue.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// MarketStatus is the lifecycle status of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Market represents a binary prediction market seen by the ingester.
// Question text is immutable after creation; status and outcome are only
// mutated by resolution detection.
type Market struct {
	ID         int64        `gorm:"primaryKey" json:"id"`
	Platform   Platform     `gorm:"not null;uniqueIndex:idx_markets_platform_id" json:"platform"`
	PlatformID string       `gorm:"not null;uniqueIndex:idx_markets_platform_id" json:"platform_id"`
	Question   string       `gorm:"not null" json:"question"`
	Category   string       `json:"category"`
	Status     MarketStatus `gorm:"not null;default:active" json:"status"`
	Outcome    *bool        `json:"outcome,omitempty"`
	CloseTime  *time.Time   `json:"close_time,omitempty"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Market model.
func (Market) TableName() string {
	return "markets"
}

// IsResolved reports whether the market has a realized outcome.
func (m *Market) IsResolved() bool {
	return m.Status == MarketStatusResolved && m.Outcome != nil
}
