package dto

import "market-edge-engine/internal/quant"

// PerformanceReport aggregates resolved recommendations and closed trades.
// The AI-vs-actual block is computed over two potentially disjoint sets and
// is reported as such, never conflated.
type PerformanceReport struct {
	ResolvedCount  int     `json:"resolved_count"`
	HitRate        float64 `json:"hit_rate"`
	AverageEdge    float64 `json:"average_edge"`
	AggregateBrier float64 `json:"aggregate_brier"`

	TradeCount int     `json:"trade_count"`
	TotalPnL   float64 `json:"total_pnl"`
	AveragePnL float64 `json:"average_pnl"`

	AIVsActual AIVsActual `json:"ai_vs_actual"`
}

// AIVsActual compares AI recommendations with the user's actual trades.
type AIVsActual struct {
	// LinkedTrades / FollowedAI cover trades that carry a recommendation link.
	LinkedTrades int     `json:"linked_trades"`
	FollowedAI   int     `json:"followed_ai"`
	FollowedRate float64 `json:"followed_rate"`
	// AIHitRate is over all resolved recommendations, traded or not.
	AIHitRate       float64 `json:"ai_hit_rate"`
	AISampleSize    int     `json:"ai_sample_size"`
	// TradeAvgReturn is over all closed trades, linked or not.
	TradeAvgReturn  float64 `json:"trade_avg_return"`
	TradeSampleSize int     `json:"trade_sample_size"`
}

// CalibrationReport is the on-demand calibration aggregation.
type CalibrationReport struct {
	BucketWidth    float64                   `json:"bucket_width"`
	SampleSize     int                       `json:"sample_size"`
	AggregateBrier float64                   `json:"aggregate_brier"`
	Buckets        []quant.CalibrationBucket `json:"buckets"`
}
