package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/config"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
)

type scanFixture struct {
	service ScanService
	jobRepo *fakeScanJobRepo
	recRepo *fakeRecommendationRepo
}

func newScanFixture(t *testing.T, cfg config.Scanner, estimator *fakeEstimator, sources ...repository.MarketSourceRepository) *scanFixture {
	t.Helper()

	marketRepo := newFakeMarketRepo()
	snapshotRepo := newFakeSnapshotRepo()
	estimateRepo := newFakeEstimateRepo()
	recRepo := newFakeRecommendationRepo()
	jobRepo := newFakeScanJobRepo()
	log := testLogger()

	settingsService := NewSettingsService(newFakeSettingsRepo(testSettings()), log)
	recommendationService := NewRecommendationService(
		marketRepo, snapshotRepo, estimateRepo, recRepo,
		estimator, newFakeLocker(), &fakeNotifier{}, log,
	)

	return &scanFixture{
		service: NewScanService(
			cfg, jobRepo, marketRepo, snapshotRepo, sources,
			settingsService, recommendationService, newFakeLocker(), log,
		),
		jobRepo: jobRepo,
		recRepo: recRepo,
	}
}

func scanConfig() config.Scanner {
	return config.Scanner{
		Timeout:         5 * time.Second,
		CoolDown:        time.Minute,
		MaxConcurrent:   2,
		EstimateTimeout: 2 * time.Second,
	}
}

func sourceWithMarkets(platform entity.Platform, count int) *fakeSource {
	s := &fakeSource{platform: platform}
	for i := 0; i < count; i++ {
		s.markets = append(s.markets, entity.Market{
			Platform:   platform,
			PlatformID: string(platform) + "-" + string(rune('a'+i)),
			Question:   "Question " + string(rune('a'+i)),
			Status:     entity.MarketStatusActive,
		})
		s.snapshots = append(s.snapshots, entity.MarketSnapshot{
			Price:      0.40,
			Volume:     5000,
			CapturedAt: time.Now(),
		})
	}
	return s
}

func goodEstimator() *fakeEstimator {
	return &fakeEstimator{result: &dto.EstimateResult{
		Probability: 0.62,
		Confidence:  entity.ConfidenceMedium,
		Model:       "test-model",
	}}
}

func waitForTerminal(t *testing.T, f *scanFixture, jobID string) *entity.ScanJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.jobRepo.FindLatest(context.Background())
		require.NoError(t, err)
		if job != nil && job.ID == jobID && job.Phase.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan did not reach a terminal phase")
	return nil
}

func TestScanCompletesAndCreatesRecommendations(t *testing.T) {
	f := newScanFixture(t, scanConfig(), goodEstimator(),
		sourceWithMarkets(entity.PlatformPolymarket, 2),
		sourceWithMarkets(entity.PlatformKalshi, 2),
	)

	resp, err := f.service.Trigger(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, resp.JobID)

	job := waitForTerminal(t, f, resp.JobID)
	assert.Equal(t, entity.ScanPhaseComplete, job.Phase)
	assert.Equal(t, 4, job.MarketsTotal)
	assert.Equal(t, 4, job.MarketsProcessed)
	assert.Equal(t, 4, job.MarketsResearched)
	assert.Equal(t, 4, job.RecommendationsCreated)
	assert.True(t, job.CompletedAt.Valid)

	recs, err := f.recRepo.FindAll(context.Background(), entity.RecommendationStatusActive)
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestScanTriggerConflictsWhileRunning(t *testing.T) {
	estimator := goodEstimator()
	estimator.delay = 300 * time.Millisecond
	f := newScanFixture(t, scanConfig(), estimator,
		sourceWithMarkets(entity.PlatformPolymarket, 3),
	)

	resp, err := f.service.Trigger(context.Background())
	require.NoError(t, err)

	_, err = f.service.Trigger(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	waitForTerminal(t, f, resp.JobID)
}

func TestScanTriggerDuringCooldownStartsFreshScan(t *testing.T) {
	f := newScanFixture(t, scanConfig(), goodEstimator(),
		sourceWithMarkets(entity.PlatformPolymarket, 1),
	)

	first, err := f.service.Trigger(context.Background())
	require.NoError(t, err)
	firstJob := waitForTerminal(t, f, first.JobID)
	require.Equal(t, entity.ScanPhaseComplete, firstJob.Phase)

	// The cooldown governs only the phase Progress reports. An explicit
	// trigger inside it clears the retained job and starts over. The global
	// lock is released a beat after the job row turns terminal, so retry.
	var second *dto.TriggerScanResponse
	require.Eventually(t, func() bool {
		resp, err := f.service.Trigger(context.Background())
		if err != nil {
			return false
		}
		second = resp
		return true
	}, time.Second, 10*time.Millisecond)
	assert.NotEqual(t, first.JobID, second.JobID)

	progress, err := f.service.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.JobID, progress.JobID)

	secondJob := waitForTerminal(t, f, second.JobID)
	assert.Equal(t, entity.ScanPhaseComplete, secondJob.Phase)
	assert.Equal(t, 1, secondJob.MarketsTotal)
}

func TestScanFetchFiltersThinVolumeMarkets(t *testing.T) {
	estimator := goodEstimator()
	src := &fakeSource{
		platform: entity.PlatformPolymarket,
		markets: []entity.Market{
			{Platform: entity.PlatformPolymarket, PlatformID: "pm-liquid", Question: "Liquid market", Status: entity.MarketStatusActive},
			{Platform: entity.PlatformPolymarket, PlatformID: "pm-thin", Question: "Thin market", Status: entity.MarketStatusActive},
		},
		snapshots: []entity.MarketSnapshot{
			{Price: 0.40, Volume: 5000, CapturedAt: time.Now()},
			{Price: 0.40, Volume: 10, CapturedAt: time.Now()},
		},
	}
	f := newScanFixture(t, scanConfig(), estimator, src)

	resp, err := f.service.Trigger(context.Background())
	require.NoError(t, err)

	job := waitForTerminal(t, f, resp.JobID)
	assert.Equal(t, entity.ScanPhaseComplete, job.Phase)
	assert.Equal(t, 1, job.MarketsTotal)
	assert.Equal(t, 1, job.MarketsProcessed)
	assert.Equal(t, 1, estimator.callCount())
}

func TestScanFailedPlatformContributesZero(t *testing.T) {
	broken := &fakeSource{platform: entity.PlatformKalshi, err: apperrors.ErrPlatformUnavailable}
	f := newScanFixture(t, scanConfig(), goodEstimator(),
		sourceWithMarkets(entity.PlatformPolymarket, 2),
		broken,
	)

	resp, err := f.service.Trigger(context.Background())
	require.NoError(t, err)

	job := waitForTerminal(t, f, resp.JobID)
	assert.Equal(t, entity.ScanPhaseComplete, job.Phase)
	assert.Equal(t, 2, job.MarketsTotal)
}

func TestScanTimesOut(t *testing.T) {
	cfg := scanConfig()
	cfg.Timeout = 150 * time.Millisecond
	estimator := goodEstimator()
	estimator.delay = time.Second

	f := newScanFixture(t, cfg, estimator,
		sourceWithMarkets(entity.PlatformPolymarket, 2),
	)

	resp, err := f.service.Trigger(context.Background())
	require.NoError(t, err)

	job := waitForTerminal(t, f, resp.JobID)
	assert.Equal(t, entity.ScanPhaseFailed, job.Phase)
	assert.True(t, job.ErrorMessage.Valid)
}

func TestProgressIdleWithNoHistory(t *testing.T) {
	f := newScanFixture(t, scanConfig(), goodEstimator())

	progress, err := f.service.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.ScanPhaseIdle, progress.Phase)
}

func TestProgressRevertsToIdleAfterCooldown(t *testing.T) {
	cfg := scanConfig()
	cfg.CoolDown = 50 * time.Millisecond
	f := newScanFixture(t, cfg, goodEstimator(),
		sourceWithMarkets(entity.PlatformPolymarket, 1),
	)

	resp, err := f.service.Trigger(context.Background())
	require.NoError(t, err)
	waitForTerminal(t, f, resp.JobID)

	time.Sleep(cfg.CoolDown + 20*time.Millisecond)

	progress, err := f.service.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.ScanPhaseIdle, progress.Phase)
}

func TestProgressWithholdsETABelowThreeProcessed(t *testing.T) {
	f := newScanFixture(t, scanConfig(), goodEstimator())
	svc := f.service.(*scanService)

	svc.mu.Lock()
	svc.current = &entity.ScanJob{
		ID:               "job-1",
		Phase:            entity.ScanPhaseResearching,
		MarketsTotal:     10,
		MarketsProcessed: 2,
		StartedAt:        time.Now().Add(-time.Minute),
	}
	svc.mu.Unlock()

	progress, err := f.service.Progress(context.Background())
	require.NoError(t, err)
	assert.Nil(t, progress.EstimatedRemainingSeconds)

	svc.mu.Lock()
	svc.current.MarketsProcessed = 3
	svc.mu.Unlock()

	progress, err = f.service.Progress(context.Background())
	require.NoError(t, err)
	require.NotNil(t, progress.EstimatedRemainingSeconds)
	assert.Greater(t, *progress.EstimatedRemainingSeconds, 0.0)
}
