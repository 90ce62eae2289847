package dto

import "market-edge-engine/internal/entity"

// ScanProgress is the point-in-time snapshot of the current (or most recent)
// scan job exposed to pollers.
type ScanProgress struct {
	JobID                  string           `json:"job_id,omitempty"`
	Phase                  entity.ScanPhase `json:"phase"`
	MarketsTotal           int              `json:"markets_total"`
	MarketsProcessed       int              `json:"markets_processed"`
	MarketsResearched      int              `json:"markets_researched"`
	MarketsSkipped         int              `json:"markets_skipped"`
	RecommendationsCreated int              `json:"recommendations_created"`
	CurrentMarket          string           `json:"current_market,omitempty"`
	ElapsedSeconds         float64          `json:"elapsed_seconds"`
	// EstimatedRemainingSeconds is withheld (nil) until at least three
	// markets have been processed; below that the sample is unreliable.
	EstimatedRemainingSeconds *float64 `json:"estimated_remaining_seconds,omitempty"`
	Error                     string   `json:"error,omitempty"`
}

// TriggerScanResponse acknowledges an accepted scan trigger.
type TriggerScanResponse struct {
	JobID string `json:"job_id"`
	Phase string `json:"phase"`
}
