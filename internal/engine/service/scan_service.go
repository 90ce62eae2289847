package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/config"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/common"
	"market-edge-engine/pkg/logger"
	"market-edge-engine/pkg/utils"
)

const etaMinProcessed = 3

// ScanService is the scan orchestrator. One scan runs at a time; triggers
// during a run return apperrors.ErrConflict. The cooldown only governs how
// long Progress keeps showing a finished job; an explicit trigger clears the
// retained terminal job immediately.
type ScanService interface {
	Trigger(ctx context.Context) (*dto.TriggerScanResponse, error)
	Progress(ctx context.Context) (*dto.ScanProgress, error)
}

// NewScanService creates a new scan orchestrator.
func NewScanService(
	cfg config.Scanner,
	jobRepo repository.ScanJobRepository,
	marketRepo repository.MarketRepository,
	snapshotRepo repository.MarketSnapshotRepository,
	sources []repository.MarketSourceRepository,
	settingsService SettingsService,
	recommendationService RecommendationService,
	locker Locker,
	log *logger.Logger,
) ScanService {
	return &scanService{
		cfg:                   cfg,
		jobRepo:               jobRepo,
		marketRepo:            marketRepo,
		snapshotRepo:          snapshotRepo,
		sources:               sources,
		settingsService:       settingsService,
		recommendationService: recommendationService,
		locker:                locker,
		logger:                log,
	}
}

type scanService struct {
	cfg                   config.Scanner
	jobRepo               repository.ScanJobRepository
	marketRepo            repository.MarketRepository
	snapshotRepo          repository.MarketSnapshotRepository
	sources               []repository.MarketSourceRepository
	settingsService       SettingsService
	recommendationService RecommendationService
	locker                Locker
	logger                *logger.Logger

	mu         sync.Mutex
	current    *entity.ScanJob
	finishedAt time.Time
}

// Trigger starts a scan job and returns immediately; the scan itself runs in
// the background until it completes, fails or times out.
func (s *scanService) Trigger(ctx context.Context) (*dto.TriggerScanResponse, error) {
	s.mu.Lock()
	if s.current != nil && !s.current.Phase.Terminal() {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan already running: %w", apperrors.ErrConflict)
	}
	s.mu.Unlock()

	// Lock across processes; a lingering non-terminal row from a crashed run
	// blocks here too until its TTL expires.
	unlock, err := s.locker.Acquire(ctx, common.ScanLockKey, s.cfg.Timeout)
	if err != nil {
		if errors.Is(err, apperrors.ErrLockHeld) {
			return nil, fmt.Errorf("scan already running: %w", apperrors.ErrConflict)
		}
		return nil, err
	}

	if stale, err := s.jobRepo.FindNonTerminal(ctx); err != nil {
		unlock()
		return nil, err
	} else if stale != nil {
		// The process died mid-scan. Fail the orphan so the run record is
		// honest, then proceed.
		stale.Phase = entity.ScanPhaseFailed
		stale.ErrorMessage = sqlString("interrupted")
		stale.CompletedAt = sqlTime(time.Now())
		if err := s.jobRepo.Update(ctx, stale); err != nil {
			unlock()
			return nil, err
		}
	}

	job := &entity.ScanJob{
		ID:        uuid.NewString(),
		Phase:     entity.ScanPhaseFetching,
		StartedAt: time.Now(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		unlock()
		return nil, err
	}

	s.mu.Lock()
	s.current = job
	s.mu.Unlock()

	utils.GoSafe(func() {
		defer unlock()
		runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		s.run(runCtx, job.ID)
	})

	return &dto.TriggerScanResponse{JobID: job.ID, Phase: string(job.Phase)}, nil
}

// Progress reports the current job, or the most recent one. After the
// cooldown following a terminal job the exposed phase reverts to idle.
func (s *scanService) Progress(ctx context.Context) (*dto.ScanProgress, error) {
	s.mu.Lock()
	job := s.current
	finishedAt := s.finishedAt
	if job != nil {
		snapshot := *job
		job = &snapshot
	}
	s.mu.Unlock()

	if job == nil {
		latest, err := s.jobRepo.FindLatest(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if latest == nil {
			return &dto.ScanProgress{Phase: entity.ScanPhaseIdle}, nil
		}
		job = latest
		if latest.CompletedAt.Valid {
			finishedAt = latest.CompletedAt.Time
		}
	}

	if job.Phase.Terminal() && !finishedAt.IsZero() && time.Since(finishedAt) >= s.cfg.CoolDown {
		return &dto.ScanProgress{Phase: entity.ScanPhaseIdle}, nil
	}

	progress := &dto.ScanProgress{
		JobID:                  job.ID,
		Phase:                  job.Phase,
		MarketsTotal:           job.MarketsTotal,
		MarketsProcessed:       job.MarketsProcessed,
		MarketsResearched:      job.MarketsResearched,
		MarketsSkipped:         job.MarketsSkipped,
		RecommendationsCreated: job.RecommendationsCreated,
		CurrentMarket:          job.CurrentMarket,
		Error:                  job.ErrorMessage.String,
	}

	elapsed := time.Since(job.StartedAt).Seconds()
	if job.CompletedAt.Valid {
		elapsed = job.CompletedAt.Time.Sub(job.StartedAt).Seconds()
	}
	progress.ElapsedSeconds = elapsed

	if !job.Phase.Terminal() && job.MarketsProcessed >= etaMinProcessed && job.MarketsTotal > job.MarketsProcessed {
		perMarket := elapsed / float64(job.MarketsProcessed)
		eta := perMarket * float64(job.MarketsTotal-job.MarketsProcessed)
		progress.EstimatedRemainingSeconds = &eta
	}

	return progress, nil
}

func (s *scanService) run(ctx context.Context, jobID string) {
	s.logger.Info("Scan started", logger.StringField("job_id", jobID))

	settings, err := s.settingsService.Get(ctx)
	if err != nil {
		s.finish(ctx, entity.ScanPhaseFailed, err)
		return
	}

	markets, snapshots, err := s.fetch(ctx, settings)
	if err != nil {
		s.finish(ctx, entity.ScanPhaseFailed, err)
		return
	}

	s.update(ctx, func(job *entity.ScanJob) {
		job.Phase = entity.ScanPhaseResearching
		job.MarketsTotal = len(markets)
	})

	if err := s.research(ctx, settings, markets, snapshots); err != nil {
		s.finish(ctx, entity.ScanPhaseFailed, err)
		return
	}

	s.finish(ctx, entity.ScanPhaseComplete, nil)
}

// fetch pulls markets from every enabled platform concurrently and drops
// those below the volume floor. A failing platform contributes zero markets;
// the scan only fails when fetching itself was cut short.
func (s *scanService) fetch(ctx context.Context, settings *entity.EngineSettings) ([]entity.Market, []entity.MarketSnapshot, error) {
	enabled := s.settingsService.EnabledPlatforms(settings)

	var (
		mu        sync.Mutex
		markets   []entity.Market
		snapshots []entity.MarketSnapshot
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, source := range s.sources {
		if !enabled[source.Platform()] {
			continue
		}
		source := source
		g.Go(func() error {
			m, snaps, err := source.FetchMarkets(gCtx, settings.MarketsPerPlatform)
			if err != nil {
				s.logger.Warn("Platform fetch failed",
					logger.StringField("platform", string(source.Platform())),
					logger.ErrorField(err),
				)
				return nil
			}
			mu.Lock()
			markets = append(markets, m...)
			snapshots = append(snapshots, snaps...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if ctx.Err() != nil {
		return nil, nil, s.timeoutErr(ctx)
	}

	// Drop thin-volume markets here so they never reach the researching
	// phase or spend estimator budget.
	keptMarkets := markets[:0]
	keptSnapshots := snapshots[:0]
	for i := range markets {
		if snapshots[i].Volume < settings.MinVolume {
			continue
		}
		keptMarkets = append(keptMarkets, markets[i])
		keptSnapshots = append(keptSnapshots, snapshots[i])
	}
	markets, snapshots = keptMarkets, keptSnapshots

	// Persist markets first so snapshots can reference their rows.
	for i := range markets {
		if err := s.marketRepo.Upsert(ctx, &markets[i]); err != nil {
			return nil, nil, err
		}
		snapshots[i].MarketID = markets[i].ID
	}
	if err := s.snapshotRepo.CreateBatch(ctx, snapshots); err != nil {
		return nil, nil, err
	}

	return markets, snapshots, nil
}

// research walks the fetched markets through estimation and evaluation with a
// bounded worker pool.
func (s *scanService) research(ctx context.Context, settings *entity.EngineSettings, markets []entity.Market, snapshots []entity.MarketSnapshot) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for i := range markets {
		if !utils.ShouldContinue(gCtx, s.logger) {
			break
		}
		market := &markets[i]
		snapshot := &snapshots[i]
		g.Go(func() error {
			s.processMarket(gCtx, settings, market, snapshot)
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return s.timeoutErr(ctx)
	}
	return nil
}

func (s *scanService) processMarket(ctx context.Context, settings *entity.EngineSettings, market *entity.Market, snapshot *entity.MarketSnapshot) {
	s.update(ctx, func(job *entity.ScanJob) {
		job.CurrentMarket = market.Question
	})

	estimateCtx, cancel := context.WithTimeout(ctx, s.cfg.EstimateTimeout)
	defer cancel()

	estimate, produced, err := s.recommendationService.EnsureEstimate(estimateCtx, market, snapshot, settings)
	if err != nil {
		s.logger.Warn("Estimation failed",
			logger.Field("market_id", market.ID),
			logger.ErrorField(err),
		)
		s.update(ctx, func(job *entity.ScanJob) {
			job.MarketsProcessed++
			job.MarketsSkipped++
		})
		return
	}

	_, created, err := s.recommendationService.Evaluate(ctx, market, snapshot, estimate, settings)
	if err != nil {
		s.logger.Warn("Evaluation failed",
			logger.Field("market_id", market.ID),
			logger.ErrorField(err),
		)
	}

	s.update(ctx, func(job *entity.ScanJob) {
		job.MarketsProcessed++
		if produced {
			job.MarketsResearched++
		}
		if created {
			job.RecommendationsCreated++
		}
	})
}

// update mutates the in-memory job under lock and persists it best-effort.
// Persistence uses a fresh context so a timed-out scan can still record its
// final state.
func (s *scanService) update(ctx context.Context, fn func(*entity.ScanJob)) {
	s.mu.Lock()
	job := s.current
	if job == nil {
		s.mu.Unlock()
		return
	}
	fn(job)
	snapshot := *job
	s.mu.Unlock()

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.jobRepo.Update(persistCtx, &snapshot); err != nil {
		s.logger.Warn("Failed to persist scan job", logger.ErrorField(err))
	}
}

func (s *scanService) finish(ctx context.Context, phase entity.ScanPhase, cause error) {
	now := time.Now()
	s.update(ctx, func(job *entity.ScanJob) {
		job.Phase = phase
		job.CurrentMarket = ""
		job.CompletedAt = sqlTime(now)
		if cause != nil {
			job.ErrorMessage = sqlString(cause.Error())
		}
	})

	s.mu.Lock()
	s.finishedAt = now
	s.mu.Unlock()

	if cause != nil {
		s.logger.Error("Scan failed", logger.ErrorField(cause))
		return
	}
	s.logger.Info("Scan complete")
}

func (s *scanService) timeoutErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("scan exceeded %s: %w", s.cfg.Timeout, apperrors.ErrScanTimeout)
	}
	return ctx.Err()
}
