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

// polymarketMarket mirrors the fields of the Gamma API market payload the
// engine consumes.
type polymarketMarket struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Category  string `json:"category"`
	Active    bool   `json:"active"`
	Closed    bool   `json:"closed"`
	EndDate   string `json:"endDate"`
	Volume    string `json:"volume"`
	Liquidity string `json:"liquidity"`
	// outcomePrices is a JSON-encoded array of strings, ["yes","no"] order.
	OutcomePrices string `json:"outcomePrices"`
	Tokens        []struct {
		Outcome string `json:"outcome"`
		Winner  bool   `json:"winner"`
	} `json:"tokens"`
}

// polymarketRepository is a MarketSourceRepository backed by the Polymarket
// Gamma API.
type polymarketRepository struct {
	cfg     config.PlatformAPI
	client  *http.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewPolymarketRepository creates a Polymarket market source.
func NewPolymarketRepository(cfg config.PlatformAPI, log *logger.Logger) MarketSourceRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	return &polymarketRepository{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		logger:  log,
	}
}

// Platform identifies this source.
func (r *polymarketRepository) Platform() entity.Platform {
	return entity.PlatformPolymarket
}

// FetchMarkets pulls active markets with their current YES prices.
func (r *polymarketRepository) FetchMarkets(ctx context.Context, limit int) ([]entity.Market, []entity.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")

	raw, err := r.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, nil, err
	}

	var apiMarkets []polymarketMarket
	if err := json.Unmarshal(raw, &apiMarkets); err != nil {
		return nil, nil, fmt.Errorf("polymarket: decode markets: %w: %v", apperrors.ErrPlatformUnavailable, err)
	}

	now := time.Now()
	markets := make([]entity.Market, 0, len(apiMarkets))
	snapshots := make([]entity.MarketSnapshot, 0, len(apiMarkets))
	for _, am := range apiMarkets {
		price, ok := am.yesPrice()
		if !ok {
			r.logger.Debug("Skipping market without a parseable price", logger.StringField("platform_id", am.ID))
			continue
		}
		markets = append(markets, am.toEntity(now))
		volume, _ := strconv.ParseFloat(am.Volume, 64)
		liquidity, _ := strconv.ParseFloat(am.Liquidity, 64)
		snapshots = append(snapshots, entity.MarketSnapshot{
			Price:      price,
			Volume:     volume,
			Liquidity:  liquidity,
			CapturedAt: now,
		})
	}
	return markets, snapshots, nil
}

// FetchResolution reports the realized outcome, or nil while unresolved.
func (r *polymarketRepository) FetchResolution(ctx context.Context, platformID string) (*bool, error) {
	raw, err := r.doGet(ctx, "/markets/"+url.PathEscape(platformID))
	if err != nil {
		return nil, err
	}

	var am polymarketMarket
	if err := json.Unmarshal(raw, &am); err != nil {
		return nil, fmt.Errorf("polymarket: decode market %s: %w: %v", platformID, apperrors.ErrPlatformUnavailable, err)
	}
	if !am.Closed {
		return nil, nil
	}
	yesWon := false
	for _, t := range am.Tokens {
		if t.Outcome == "Yes" && t.Winner {
			yesWon = true
			break
		}
	}
	return &yesWon, nil
}

func (r *polymarketRepository) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("polymarket: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket: build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket: %w: %v", apperrors.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("polymarket: %w: status %d: %s", apperrors.ErrPlatformUnavailable, resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

func (m *polymarketMarket) yesPrice() (float64, bool) {
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil || len(prices) == 0 {
		return 0, false
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil || p < 0 || p > 1 {
		return 0, false
	}
	return p, true
}

func (m *polymarketMarket) toEntity(now time.Time) entity.Market {
	status := entity.MarketStatusActive
	if m.Closed {
		status = entity.MarketStatusClosed
	}
	market := entity.Market{
		Platform:   entity.PlatformPolymarket,
		PlatformID: m.ID,
		Question:   m.Question,
		Category:   m.Category,
		Status:     status,
		CreatedAt:  now,
	}
	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		market.CloseTime = &t
	}
	return market
}
