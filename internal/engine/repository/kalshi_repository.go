package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/config"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// kalshiMarket mirrors the Kalshi trade API market payload. Prices are in
// cents.
type kalshiMarket struct {
	Ticker    string  `json:"ticker"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Status    string  `json:"status"`
	YesBid    float64 `json:"yes_bid"`
	YesAsk    float64 `json:"yes_ask"`
	LastPrice float64 `json:"last_price"`
	Volume    float64 `json:"volume"`
	Liquidity float64 `json:"liquidity"`
	CloseTime string  `json:"close_time"`
	Result    string  `json:"result"`
}

type kalshiMarketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
}

type kalshiMarketResponse struct {
	Market kalshiMarket `json:"market"`
}

// kalshiRepository is a MarketSourceRepository backed by the Kalshi trade
// API.
type kalshiRepository struct {
	cfg     config.PlatformAPI
	client  *http.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewKalshiRepository creates a Kalshi market source.
func NewKalshiRepository(cfg config.PlatformAPI, log *logger.Logger) MarketSourceRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	return &kalshiRepository{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		logger:  log,
	}
}

// Platform identifies this source.
func (r *kalshiRepository) Platform() entity.Platform {
	return entity.PlatformKalshi
}

// FetchMarkets pulls open markets with their current YES prices.
func (r *kalshiRepository) FetchMarkets(ctx context.Context, limit int) ([]entity.Market, []entity.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "open")

	raw, err := r.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, nil, err
	}

	var payload kalshiMarketsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("kalshi: decode markets: %w: %v", apperrors.ErrPlatformUnavailable, err)
	}

	now := time.Now()
	markets := make([]entity.Market, 0, len(payload.Markets))
	snapshots := make([]entity.MarketSnapshot, 0, len(payload.Markets))
	for _, km := range payload.Markets {
		price, ok := km.yesPrice()
		if !ok {
			r.logger.Debug("Skipping market without a usable price", logger.StringField("ticker", km.Ticker))
			continue
		}
		markets = append(markets, km.toEntity(now))
		snapshots = append(snapshots, entity.MarketSnapshot{
			Price:      price,
			Volume:     km.Volume,
			Liquidity:  km.Liquidity,
			CapturedAt: now,
		})
	}
	return markets, snapshots, nil
}

// FetchResolution reports the settled outcome, or nil while unsettled.
func (r *kalshiRepository) FetchResolution(ctx context.Context, platformID string) (*bool, error) {
	raw, err := r.doGet(ctx, "/markets/"+url.PathEscape(platformID))
	if err != nil {
		return nil, err
	}

	var payload kalshiMarketResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("kalshi: decode market %s: %w: %v", platformID, apperrors.ErrPlatformUnavailable, err)
	}
	switch payload.Market.Result {
	case "yes":
		yes := true
		return &yes, nil
	case "no":
		no := false
		return &no, nil
	default:
		return nil, nil
	}
}

func (r *kalshiRepository) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("kalshi: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("kalshi: build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kalshi: %w: %v", apperrors.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kalshi: %w: status %d: %s", apperrors.ErrPlatformUnavailable, resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// yesPrice prefers the bid/ask midpoint, falling back to the last trade.
func (m *kalshiMarket) yesPrice() (float64, bool) {
	cents := (m.YesBid + m.YesAsk) / 2
	if cents == 0 {
		cents = m.LastPrice
	}
	if cents <= 0 || cents >= 100 {
		return 0, false
	}
	return cents / 100, true
}

func (m *kalshiMarket) toEntity(now time.Time) entity.Market {
	status := entity.MarketStatusActive
	if m.Status != "open" {
		status = entity.MarketStatusClosed
	}
	market := entity.Market{
		Platform:   entity.PlatformKalshi,
		PlatformID: m.Ticker,
		Question:   m.Title,
		Category:   m.Category,
		Status:     status,
		CreatedAt:  now,
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		market.CloseTime = &t
	}
	return market
}
