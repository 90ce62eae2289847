package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/config"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
	"market-edge-engine/pkg/ratelimit"
)

// geminiEstimatorRepository is an EstimatorRepository that uses the Google
// Gemini API, with research context gathered per market.
type geminiEstimatorRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
	researchRepo   ResearchRepository
}

// NewGeminiEstimatorRepository creates a new Gemini-backed estimator.
func NewGeminiEstimatorRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client, researchRepo ResearchRepository) (EstimatorRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.Gemini.MaxRequestPerMinute, 1))
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)

	return &geminiEstimatorRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
		researchRepo:   researchRepo,
	}, nil
}

// Estimate produces a probability estimate for the market, spending at most
// researchBudget article fetches on context gathering.
func (r *geminiEstimatorRepository) Estimate(ctx context.Context, market *entity.Market, researchBudget int) (*dto.EstimateResult, error) {
	articles, err := r.researchRepo.Gather(ctx, market.Question, researchBudget)
	if err != nil {
		// Research is best-effort; the estimator can answer from priors.
		r.logger.Warn("Research gathering failed, estimating without context",
			logger.ErrorField(err),
			logger.StringField("question", market.Question),
		)
	}

	prompt := BuildEstimatePrompt(market, articles)

	geminiResp, err := r.executeGeminiRequest(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEstimationFailed, err)
	}

	result, err := r.parseEstimateResponse(geminiResp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEstimationFailed, err)
	}
	result.Model = r.cfg.Gemini.Model
	return result, nil
}

func (r *geminiEstimatorRepository) executeGeminiRequest(ctx context.Context, prompt string) (*dto.GeminiAPIResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(geminiTokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.Content{{Parts: []dto.Part{{Text: prompt}}}},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s:generateContent?key=%s", r.cfg.Gemini.BaseURL, r.cfg.Gemini.Model, r.cfg.Gemini.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-OK response from Gemini API: %d - %s", resp.StatusCode, string(body))
	}

	var geminiResp dto.GeminiAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return &geminiResp, nil
}

func (r *geminiEstimatorRepository) parseEstimateResponse(resp *dto.GeminiAPIResponse) (*dto.EstimateResult, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content found in Gemini response")
	}

	jsonString := resp.Candidates[0].Content.Parts[0].Text
	jsonString = strings.Trim(jsonString, "`json\n`")

	var result dto.EstimateResult
	if err := json.Unmarshal([]byte(jsonString), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimate from Gemini response: %w", err)
	}

	if math.IsNaN(result.Probability) || result.Probability < 0 || result.Probability > 1 {
		return nil, fmt.Errorf("estimate probability %v outside [0,1]", result.Probability)
	}
	switch result.Confidence {
	case entity.ConfidenceHigh, entity.ConfidenceMedium, entity.ConfidenceLow:
	default:
		result.Confidence = entity.ConfidenceLow
	}
	return &result, nil
}
