package dto

// UpdateSettingsRequest mutates the runtime decision thresholds. Pointer
// fields distinguish "not provided" from zero.
type UpdateSettingsRequest struct {
	MinEdgeThreshold     *float64        `json:"min_edge_threshold,omitempty"`
	KellyMultiplier      *float64        `json:"kelly_multiplier,omitempty"`
	MaxSingleBetFraction *float64        `json:"max_single_bet_fraction,omitempty"`
	Bankroll             *float64        `json:"bankroll,omitempty"`
	ScanIntervalHours    *int            `json:"scan_interval_hours,omitempty"`
	MinVolume            *float64        `json:"min_volume,omitempty"`
	EstimateCacheHours   *int            `json:"estimate_cache_hours,omitempty"`
	ReEstimateTrigger    *float64        `json:"re_estimate_trigger,omitempty"`
	MarketsPerPlatform   *int            `json:"markets_per_platform,omitempty"`
	WebSearchMaxUses     *int            `json:"web_search_max_uses,omitempty"`
	EnabledPlatforms     map[string]bool `json:"enabled_platforms,omitempty"`
}
