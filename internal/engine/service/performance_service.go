package service

import (
	"context"

	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/internal/quant"
	"market-edge-engine/pkg/logger"
)

const defaultCalibrationBucketWidth = 0.1

// PerformanceService aggregates resolved recommendations and closed trades
// into performance and calibration reports. Everything is computed on demand
// from the stored rows; nothing is cached or incrementally maintained.
type PerformanceService interface {
	Report(ctx context.Context) (*dto.PerformanceReport, error)
	Calibration(ctx context.Context, bucketWidth float64) (*dto.CalibrationReport, error)
}

// NewPerformanceService creates a new performance tracker.
func NewPerformanceService(
	recommendationRepo repository.RecommendationRepository,
	tradeRepo repository.TradeRepository,
	log *logger.Logger,
) PerformanceService {
	return &performanceService{
		recommendationRepo: recommendationRepo,
		tradeRepo:          tradeRepo,
		logger:             log,
	}
}

type performanceService struct {
	recommendationRepo repository.RecommendationRepository
	tradeRepo          repository.TradeRepository
	logger             *logger.Logger
}

// Report builds the full performance report. With no resolved
// recommendations or no closed trades the corresponding rates are zero, not
// an error.
func (s *performanceService) Report(ctx context.Context) (*dto.PerformanceReport, error) {
	resolved, err := s.recommendationRepo.FindResolved(ctx)
	if err != nil {
		return nil, err
	}
	closed, err := s.tradeRepo.FindClosed(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.PerformanceReport{
		ResolvedCount: len(resolved),
		TradeCount:    len(closed),
	}

	var hits int
	var edgeSum float64
	probs := make([]float64, 0, len(resolved))
	outcomes := make([]bool, 0, len(resolved))
	for i := range resolved {
		rec := &resolved[i]
		if rec.Outcome == nil {
			continue
		}
		if rec.Hit() {
			hits++
		}
		edgeSum += rec.Edge
		probs = append(probs, rec.AIProbability)
		outcomes = append(outcomes, *rec.Outcome)
	}
	if len(probs) > 0 {
		report.HitRate = float64(hits) / float64(len(probs))
		report.AverageEdge = edgeSum / float64(len(probs))
		brier, err := quant.AggregateBrier(probs, outcomes)
		if err != nil {
			return nil, err
		}
		report.AggregateBrier = brier
	}

	var pnlSum, returnSum float64
	var returnCount int
	for i := range closed {
		trade := &closed[i]
		if trade.PnL == nil {
			continue
		}
		pnlSum += *trade.PnL
		if trade.Amount > 0 {
			returnSum += *trade.PnL / trade.Amount
			returnCount++
		}
	}
	report.TotalPnL = pnlSum
	if len(closed) > 0 {
		report.AveragePnL = pnlSum / float64(len(closed))
	}

	// Followed-direction lookups span every recommendation status; a trade
	// can be linked to a recommendation that has not resolved yet.
	allRecs, err := s.recommendationRepo.FindAll(ctx, "")
	if err != nil {
		return nil, err
	}
	report.AIVsActual = s.aiVsActual(allRecs, closed, report.HitRate, len(probs), returnSum, returnCount)

	return report, nil
}

// aiVsActual keeps the two sides as independent statistics over their own
// samples. Linked trades additionally report how often the user followed the
// recommended direction.
func (s *performanceService) aiVsActual(recs []entity.Recommendation, closed []entity.Trade, aiHitRate float64, aiSample int, returnSum float64, returnCount int) dto.AIVsActual {
	byID := make(map[int64]*entity.Recommendation, len(recs))
	for i := range recs {
		byID[recs[i].ID] = &recs[i]
	}

	out := dto.AIVsActual{
		AIHitRate:       aiHitRate,
		AISampleSize:    aiSample,
		TradeSampleSize: len(closed),
	}
	if returnCount > 0 {
		out.TradeAvgReturn = returnSum / float64(returnCount)
	}

	for i := range closed {
		trade := &closed[i]
		if trade.RecommendationID == nil {
			continue
		}
		out.LinkedTrades++
		if rec, ok := byID[*trade.RecommendationID]; ok && rec.Direction == trade.Direction {
			out.FollowedAI++
		}
	}
	if out.LinkedTrades > 0 {
		out.FollowedRate = float64(out.FollowedAI) / float64(out.LinkedTrades)
	}
	return out
}

// Calibration buckets resolved recommendations by estimated probability.
// A non-positive bucket width falls back to the default of 0.1.
func (s *performanceService) Calibration(ctx context.Context, bucketWidth float64) (*dto.CalibrationReport, error) {
	if bucketWidth <= 0 {
		bucketWidth = defaultCalibrationBucketWidth
	}

	resolved, err := s.recommendationRepo.FindResolved(ctx)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, 0, len(resolved))
	outcomes := make([]bool, 0, len(resolved))
	for i := range resolved {
		if resolved[i].Outcome == nil {
			continue
		}
		probs = append(probs, resolved[i].AIProbability)
		outcomes = append(outcomes, *resolved[i].Outcome)
	}

	report := &dto.CalibrationReport{
		BucketWidth: bucketWidth,
		SampleSize:  len(probs),
	}
	if len(probs) == 0 {
		return report, nil
	}

	buckets, err := quant.CalibrationBuckets(probs, outcomes, bucketWidth)
	if err != nil {
		return nil, err
	}
	brier, err := quant.AggregateBrier(probs, outcomes)
	if err != nil {
		return nil, err
	}
	report.Buckets = buckets
	report.AggregateBrier = brier
	return report, nil
}
