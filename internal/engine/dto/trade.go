package dto

// CreateTradeRequest places a bet. With a recommendation link the entry
// price comes from the gateway fill; a manual (unlinked) record must carry
// its own entry price.
type CreateTradeRequest struct {
	RecommendationID *int64   `json:"recommendation_id,omitempty"`
	MarketID         int64    `json:"market_id"`
	Direction        string   `json:"direction"`
	Amount           float64  `json:"amount"`
	EntryPrice       *float64 `json:"entry_price,omitempty"`
}

// CloseTradeRequest closes an open trade at the given exit price.
type CloseTradeRequest struct {
	ExitPrice float64  `json:"exit_price"`
	Fees      *float64 `json:"fees,omitempty"`
}

// TradeExecution is the gateway's fill report.
type TradeExecution struct {
	Contracts  float64 `json:"contracts"`
	PriceCents int     `json:"price_cents"`
	TotalCost  float64 `json:"total_cost"`
}
