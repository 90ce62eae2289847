package entity

import (
	"time"

	"github.com/lib/pq"
)

// ConfidenceLevel is the estimator's self-reported confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// AIEstimate is an independent probability estimate for a market produced by
// the LLM estimator. Estimates are append-only per market; the most recent one
// is the market's latest.
type AIEstimate struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	MarketID      int64           `gorm:"not null;index:idx_estimates_market_time" json:"market_id"`
	Probability   float64         `gorm:"not null" json:"probability"`
	Confidence    ConfidenceLevel `gorm:"not null" json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	Evidence      pq.StringArray  `gorm:"type:text[]" json:"evidence"`
	Uncertainties pq.StringArray  `gorm:"type:text[]" json:"uncertainties"`
	Model         string          `gorm:"not null" json:"model"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index:idx_estimates_market_time" json:"created_at"`
}

// TableName specifies the table name for the AIEstimate model.
func (AIEstimate) TableName() string {
	return "ai_estimates"
}
