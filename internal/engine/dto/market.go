package dto

import "market-edge-engine/internal/entity"

// MarketDetail is a market with its latest snapshot and estimate attached.
type MarketDetail struct {
	Market         entity.Market          `json:"market"`
	LatestSnapshot *entity.MarketSnapshot `json:"latest_snapshot,omitempty"`
	LatestEstimate *entity.AIEstimate     `json:"latest_estimate,omitempty"`
}
