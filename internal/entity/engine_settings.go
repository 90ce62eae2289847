package entity

import (
	"time"

	"gorm.io/datatypes"
)

// EngineSettings is the singleton record of runtime-tunable decision
// thresholds. It is readable by all components and updatable without restart.
type EngineSettings struct {
	ID                   int64          `gorm:"primaryKey" json:"id"`
	MinEdgeThreshold     float64        `gorm:"not null" json:"min_edge_threshold"`
	KellyMultiplier      float64        `gorm:"not null" json:"kelly_multiplier"`
	MaxSingleBetFraction float64        `gorm:"not null" json:"max_single_bet_fraction"`
	Bankroll             float64        `gorm:"not null" json:"bankroll"`
	ScanIntervalHours    int            `gorm:"not null" json:"scan_interval_hours"`
	MinVolume            float64        `gorm:"not null" json:"min_volume"`
	EstimateCacheHours   int            `gorm:"not null" json:"estimate_cache_hours"`
	ReEstimateTrigger    float64        `gorm:"not null" json:"re_estimate_trigger"`
	MarketsPerPlatform   int            `gorm:"not null" json:"markets_per_platform"`
	WebSearchMaxUses     int            `gorm:"not null" json:"web_search_max_uses"`
	EnabledPlatforms     datatypes.JSON `gorm:"type:jsonb" json:"enabled_platforms"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the EngineSettings model.
func (EngineSettings) TableName() string {
	return "engine_settings"
}
