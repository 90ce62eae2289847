package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/internal/quant"
	"market-edge-engine/pkg/common"
	"market-edge-engine/pkg/logger"
	"market-edge-engine/pkg/telegram"
)

// Locker is the distributed-lock surface the lifecycle manager needs; the
// Redis lock manager satisfies it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RecommendationService is the lifecycle manager: it derives recommendations
// from (snapshot, estimate) pairs and drives the
// no-recommendation -> active -> {expired, resolved} state machine.
type RecommendationService interface {
	// EnsureEstimate returns a fresh-enough estimate for the market,
	// requesting a new one from the estimator when the cached one is stale
	// or the price has moved past the re-estimation trigger. The bool
	// reports whether a new estimate was produced.
	EnsureEstimate(ctx context.Context, market *entity.Market, snapshot *entity.MarketSnapshot, settings *entity.EngineSettings) (*entity.AIEstimate, bool, error)
	// Evaluate applies the edge threshold gate and creates a recommendation
	// when the market clears it. The bool reports whether one was created.
	Evaluate(ctx context.Context, market *entity.Market, snapshot *entity.MarketSnapshot, estimate *entity.AIEstimate, settings *entity.EngineSettings) (*entity.Recommendation, bool, error)
	// ResolveMarket transitions the market and its recommendation to
	// resolved with the realized outcome.
	ResolveMarket(ctx context.Context, marketID int64, outcome bool) error
	GetByID(ctx context.Context, id int64) (*entity.Recommendation, error)
	GetAll(ctx context.Context, status entity.RecommendationStatus) ([]entity.Recommendation, error)
}

// NewRecommendationService creates a new lifecycle manager.
func NewRecommendationService(
	marketRepo repository.MarketRepository,
	snapshotRepo repository.MarketSnapshotRepository,
	estimateRepo repository.AIEstimateRepository,
	recommendationRepo repository.RecommendationRepository,
	estimator repository.EstimatorRepository,
	locker Locker,
	notifier telegram.Notifier,
	log *logger.Logger,
) RecommendationService {
	return &recommendationService{
		marketRepo:         marketRepo,
		snapshotRepo:       snapshotRepo,
		estimateRepo:       estimateRepo,
		recommendationRepo: recommendationRepo,
		estimator:          estimator,
		locker:             locker,
		notifier:           notifier,
		logger:             log,
		estimatePrices:     cache.New(24*time.Hour, time.Hour),
	}
}

type recommendationService struct {
	marketRepo         repository.MarketRepository
	snapshotRepo       repository.MarketSnapshotRepository
	estimateRepo       repository.AIEstimateRepository
	recommendationRepo repository.RecommendationRepository
	estimator          repository.EstimatorRepository
	locker             Locker
	notifier           telegram.Notifier
	logger             *logger.Logger

	// estimatePrices remembers the market price that accompanied each
	// market's latest estimate, for the re-estimation trigger.
	estimatePrices *cache.Cache
}

func estimatePriceKey(marketID int64) string {
	return fmt.Sprintf("%d", marketID)
}

// EnsureEstimate reuses the latest estimate when it is inside the cache
// window and the price has not moved past the trigger; otherwise it requests
// a fresh one. Concurrent estimations for the same market are deduplicated by
// a per-market lock.
func (s *recommendationService) EnsureEstimate(ctx context.Context, market *entity.Market, snapshot *entity.MarketSnapshot, settings *entity.EngineSettings) (*entity.AIEstimate, bool, error) {
	if snapshot == nil {
		return nil, false, fmt.Errorf("market %d: %w", market.ID, apperrors.ErrNoData)
	}

	latest, err := s.estimateRepo.FindLatestByMarket(ctx, market.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}
	if latest != nil && s.isFresh(latest, snapshot, settings) {
		return latest, false, nil
	}

	// At most one concurrent estimation per market. A held lock means another
	// worker is already producing the estimate we need; the stale one is never
	// reused as a substitute.
	unlock, err := s.locker.Acquire(ctx, common.MarketEstimateLockPrefix+estimatePriceKey(market.ID), 5*time.Minute)
	if err != nil {
		if errors.Is(err, apperrors.ErrLockHeld) {
			return nil, false, fmt.Errorf("market %d estimation in flight: %w", market.ID, apperrors.ErrEstimationFailed)
		}
		return nil, false, err
	}
	defer unlock()

	result, err := s.estimator.Estimate(ctx, market, settings.WebSearchMaxUses)
	if err != nil {
		return nil, false, err
	}

	estimate := &entity.AIEstimate{
		MarketID:      market.ID,
		Probability:   result.Probability,
		Confidence:    result.Confidence,
		Reasoning:     result.Reasoning,
		Evidence:      result.Evidence,
		Uncertainties: result.Uncertainties,
		Model:         result.Model,
		CreatedAt:     time.Now(),
	}
	if err := s.estimateRepo.Create(ctx, estimate); err != nil {
		return nil, false, err
	}
	s.estimatePrices.Set(estimatePriceKey(market.ID), snapshot.Price, cache.DefaultExpiration)

	return estimate, true, nil
}

// isFresh applies the cache window and the price-move trigger. Stale
// estimates are never silently reused past the window.
func (s *recommendationService) isFresh(estimate *entity.AIEstimate, snapshot *entity.MarketSnapshot, settings *entity.EngineSettings) bool {
	maxAge := time.Duration(settings.EstimateCacheHours) * time.Hour
	if time.Since(estimate.CreatedAt) > maxAge {
		return false
	}
	if cached, found := s.estimatePrices.Get(estimatePriceKey(estimate.MarketID)); found {
		priceAtEstimate := cached.(float64)
		if abs(snapshot.Price-priceAtEstimate) > settings.ReEstimateTrigger {
			return false
		}
	}
	return true
}

// Evaluate scores the pair and creates a recommendation when the market
// clears the gate. A prior active recommendation for the market expires in
// the same transaction, keeping at most one active per market.
func (s *recommendationService) Evaluate(ctx context.Context, market *entity.Market, snapshot *entity.MarketSnapshot, estimate *entity.AIEstimate, settings *entity.EngineSettings) (*entity.Recommendation, bool, error) {
	if snapshot == nil {
		return nil, false, fmt.Errorf("market %d: %w", market.ID, apperrors.ErrNoData)
	}

	direction, err := quant.ChooseDirection(snapshot.Price, estimate.Probability)
	if err != nil {
		return nil, false, err
	}
	edge, err := quant.Edge(direction, snapshot.Price, estimate.Probability)
	if err != nil {
		return nil, false, err
	}

	if market.Status != entity.MarketStatusActive ||
		snapshot.Volume < settings.MinVolume ||
		edge < settings.MinEdgeThreshold {
		return nil, false, nil
	}

	ev, err := quant.ExpectedValue(direction, snapshot.Price, estimate.Probability)
	if err != nil {
		return nil, false, err
	}
	kelly, err := quant.KellyFraction(direction, snapshot.Price, estimate.Probability, settings.KellyMultiplier)
	if err != nil {
		return nil, false, err
	}

	rec := &entity.Recommendation{
		MarketID:      market.ID,
		EstimateID:    estimate.ID,
		SnapshotID:    snapshot.ID,
		Direction:     direction,
		MarketPrice:   snapshot.Price,
		AIProbability: estimate.Probability,
		Edge:          edge,
		EV:            ev,
		KellyFraction: kelly,
		Status:        entity.RecommendationStatusActive,
		CreatedAt:     time.Now(),
	}
	if err := s.recommendationRepo.CreateExclusive(ctx, rec); err != nil {
		return nil, false, err
	}

	s.logger.Info("Recommendation created",
		logger.Field("market_id", market.ID),
		logger.StringField("direction", string(direction)),
		logger.Float64Field("edge", edge),
		logger.Float64Field("ev", ev),
		logger.Float64Field("kelly_fraction", kelly),
	)
	s.notify(market, rec)

	return rec, true, nil
}

// ResolveMarket stamps the outcome on the market and on whichever
// recommendation was active for it (or the most recent one).
func (s *recommendationService) ResolveMarket(ctx context.Context, marketID int64, outcome bool) error {
	now := time.Now()
	if err := s.marketRepo.MarkResolved(ctx, marketID, outcome, now); err != nil {
		return err
	}
	return s.recommendationRepo.ResolveForMarket(ctx, marketID, outcome, now)
}

// GetByID retrieves one recommendation.
func (s *recommendationService) GetByID(ctx context.Context, id int64) (*entity.Recommendation, error) {
	return s.recommendationRepo.FindByID(ctx, id)
}

// GetAll retrieves recommendations, optionally filtered by status.
func (s *recommendationService) GetAll(ctx context.Context, status entity.RecommendationStatus) ([]entity.Recommendation, error) {
	return s.recommendationRepo.FindAll(ctx, status)
}

func (s *recommendationService) notify(market *entity.Market, rec *entity.Recommendation) {
	msg := fmt.Sprintf("*New recommendation*\n%s\nDirection: %s | Edge: %.1f%% | EV: %.2f | Kelly: %.1f%%",
		market.Question, rec.Direction, rec.Edge*100, rec.EV, rec.KellyFraction*100)
	if err := s.notifier.SendMessage(msg); err != nil {
		s.logger.Warn("Failed to send recommendation notification", logger.ErrorField(err))
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
