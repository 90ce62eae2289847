package entity

import "time"

// Direction is the side of a binary market a recommendation favors.
type Direction string

const (
	DirectionYes Direction = "yes"
	DirectionNo  Direction = "no"
)

// RecommendationStatus is the lifecycle status of a recommendation.
type RecommendationStatus string

const (
	RecommendationStatusActive   RecommendationStatus = "active"
	RecommendationStatusExpired  RecommendationStatus = "expired"
	RecommendationStatusResolved RecommendationStatus = "resolved"
)

// Recommendation links one market, one estimate and one snapshot into an
// actionable trading signal. Only status, outcome and resolved_at mutate after
// creation; edge, ev and kelly_fraction must always be recomputable from the
// stored market_price / ai_probability pair.
type Recommendation struct {
	ID            int64                `gorm:"primaryKey" json:"id"`
	MarketID      int64                `gorm:"not null;index" json:"market_id"`
	EstimateID    int64                `gorm:"not null" json:"estimate_id"`
	SnapshotID    int64                `gorm:"not null" json:"snapshot_id"`
	Direction     Direction            `gorm:"not null" json:"direction"`
	MarketPrice   float64              `gorm:"not null" json:"market_price"`
	AIProbability float64              `gorm:"not null" json:"ai_probability"`
	Edge          float64              `gorm:"not null" json:"edge"`
	EV            float64              `gorm:"not null" json:"ev"`
	KellyFraction float64              `gorm:"not null" json:"kelly_fraction"`
	Status        RecommendationStatus `gorm:"not null;default:active" json:"status"`
	Outcome       *bool                `json:"outcome,omitempty"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for the Recommendation model.
func (Recommendation) TableName() string {
	return "recommendations"
}

// Hit reports whether the recommended direction matched the realized outcome.
// It returns false when the recommendation is not resolved yet.
func (r *Recommendation) Hit() bool {
	if r.Outcome == nil {
		return false
	}
	if r.Direction == DirectionYes {
		return *r.Outcome
	}
	return !*r.Outcome
}
