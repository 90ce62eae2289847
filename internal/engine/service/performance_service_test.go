package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-edge-engine/internal/entity"
)

func boolPtr(v bool) *bool          { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func resolvedRec(recRepo *fakeRecommendationRepo, marketID int64, direction entity.Direction, probability, edge float64, outcome bool) entity.Recommendation {
	now := time.Now()
	return recRepo.add(entity.Recommendation{
		MarketID:      marketID,
		Direction:     direction,
		AIProbability: probability,
		MarketPrice:   0.50,
		Edge:          edge,
		Status:        entity.RecommendationStatusResolved,
		Outcome:       &outcome,
		CreatedAt:     now,
		ResolvedAt:    &now,
	})
}

func closedTrade(tradeRepo *fakeTradeRepo, marketID int64, recommendationID *int64, direction entity.Direction, amount, pnl float64) entity.Trade {
	now := time.Now()
	return tradeRepo.add(entity.Trade{
		Platform:         entity.PlatformPolymarket,
		MarketID:         marketID,
		RecommendationID: recommendationID,
		Direction:        direction,
		EntryPrice:       0.50,
		Amount:           amount,
		Contracts:        amount / 0.50,
		Status:           entity.TradeStatusClosed,
		PnL:              &pnl,
		CreatedAt:        now,
		ClosedAt:         &now,
	})
}

func TestReportEmpty(t *testing.T) {
	svc := NewPerformanceService(newFakeRecommendationRepo(), newFakeTradeRepo(), testLogger())

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.ResolvedCount)
	assert.Zero(t, report.HitRate)
	assert.Zero(t, report.TradeCount)
	assert.Zero(t, report.TotalPnL)
	assert.Zero(t, report.AIVsActual.AISampleSize)
}

func TestReportAggregates(t *testing.T) {
	recRepo := newFakeRecommendationRepo()
	tradeRepo := newFakeTradeRepo()

	// yes @ p=0.8 resolved YES: hit. no @ p=0.3 resolved YES: miss.
	resolvedRec(recRepo, 1, entity.DirectionYes, 0.8, 0.30, true)
	resolvedRec(recRepo, 2, entity.DirectionNo, 0.3, 0.20, true)

	closedTrade(tradeRepo, 1, nil, entity.DirectionYes, 100, 40)
	closedTrade(tradeRepo, 2, nil, entity.DirectionYes, 100, -20)

	svc := NewPerformanceService(recRepo, tradeRepo, testLogger())
	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.ResolvedCount)
	assert.InDelta(t, 0.5, report.HitRate, 1e-9)
	assert.InDelta(t, 0.25, report.AverageEdge, 1e-9)
	// Brier: ((0.8-1)^2 + (0.3-1)^2) / 2 = (0.04 + 0.49) / 2
	assert.InDelta(t, 0.265, report.AggregateBrier, 1e-9)

	assert.Equal(t, 2, report.TradeCount)
	assert.InDelta(t, 20, report.TotalPnL, 1e-9)
	assert.InDelta(t, 10, report.AveragePnL, 1e-9)
}

func TestReportKeepsAIAndTradeStatisticsIndependent(t *testing.T) {
	recRepo := newFakeRecommendationRepo()
	tradeRepo := newFakeTradeRepo()

	rec := resolvedRec(recRepo, 1, entity.DirectionYes, 0.7, 0.20, true)
	resolvedRec(recRepo, 2, entity.DirectionYes, 0.6, 0.15, false)

	// One linked trade following the recommendation, one unlinked.
	closedTrade(tradeRepo, 1, int64Ptr(rec.ID), entity.DirectionYes, 100, 50)
	closedTrade(tradeRepo, 3, nil, entity.DirectionNo, 200, -10)

	svc := NewPerformanceService(recRepo, tradeRepo, testLogger())
	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	ai := report.AIVsActual
	// AI side spans both resolved recommendations, traded or not.
	assert.Equal(t, 2, ai.AISampleSize)
	assert.InDelta(t, 0.5, ai.AIHitRate, 1e-9)
	// Trade side spans both closed trades, linked or not.
	assert.Equal(t, 2, ai.TradeSampleSize)
	assert.InDelta(t, (50.0/100+(-10.0/200))/2, ai.TradeAvgReturn, 1e-9)

	assert.Equal(t, 1, ai.LinkedTrades)
	assert.Equal(t, 1, ai.FollowedAI)
	assert.InDelta(t, 1.0, ai.FollowedRate, 1e-9)
}

func TestReportFollowedAICountsUnresolvedLinkedRecommendations(t *testing.T) {
	recRepo := newFakeRecommendationRepo()
	tradeRepo := newFakeTradeRepo()

	// The trade's recommendation is still active; the market has not
	// resolved. Following it must still count.
	now := time.Now()
	active := recRepo.add(entity.Recommendation{
		MarketID:      1,
		Direction:     entity.DirectionYes,
		AIProbability: 0.7,
		MarketPrice:   0.50,
		Edge:          0.20,
		Status:        entity.RecommendationStatusActive,
		CreatedAt:     now,
	})
	closedTrade(tradeRepo, 1, int64Ptr(active.ID), entity.DirectionYes, 100, 25)

	svc := NewPerformanceService(recRepo, tradeRepo, testLogger())
	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	ai := report.AIVsActual
	assert.Zero(t, ai.AISampleSize)
	assert.Equal(t, 1, ai.LinkedTrades)
	assert.Equal(t, 1, ai.FollowedAI)
	assert.InDelta(t, 1.0, ai.FollowedRate, 1e-9)
}

func TestCalibrationBucketsResolved(t *testing.T) {
	recRepo := newFakeRecommendationRepo()

	resolvedRec(recRepo, 1, entity.DirectionYes, 0.62, 0.1, true)
	resolvedRec(recRepo, 2, entity.DirectionYes, 0.65, 0.1, false)
	resolvedRec(recRepo, 3, entity.DirectionYes, 0.95, 0.1, true)

	svc := NewPerformanceService(recRepo, newFakeTradeRepo(), testLogger())
	report, err := svc.Calibration(context.Background(), 0.1)
	require.NoError(t, err)

	assert.Equal(t, 3, report.SampleSize)
	require.Len(t, report.Buckets, 2)

	low := report.Buckets[0]
	assert.Equal(t, 2, low.Count)
	assert.InDelta(t, 0.6, low.RangeLow, 1e-9)
	assert.InDelta(t, 0.5, low.ObservedFrequency, 1e-9)
	assert.InDelta(t, 0.635, low.PredictedAvg, 1e-9)

	high := report.Buckets[1]
	assert.Equal(t, 1, high.Count)
	assert.InDelta(t, 1.0, high.ObservedFrequency, 1e-9)
}

func TestCalibrationDefaultsBucketWidth(t *testing.T) {
	svc := NewPerformanceService(newFakeRecommendationRepo(), newFakeTradeRepo(), testLogger())

	report, err := svc.Calibration(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, report.BucketWidth, 1e-9)
	assert.Zero(t, report.SampleSize)
	assert.Empty(t, report.Buckets)
}
