package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/pkg/logger"
)

// SchedulerService drives the periodic work: triggering scans on the
// configured interval and sweeping unresolved markets for resolutions.
type SchedulerService interface {
	Start() error
	Stop()
}

// NewSchedulerService creates a new scheduler.
func NewSchedulerService(
	scanService ScanService,
	settingsService SettingsService,
	recommendationService RecommendationService,
	marketRepo repository.MarketRepository,
	sources []repository.MarketSourceRepository,
	log *logger.Logger,
) SchedulerService {
	return &schedulerService{
		scanService:           scanService,
		settingsService:       settingsService,
		recommendationService: recommendationService,
		marketRepo:            marketRepo,
		sources:               sources,
		logger:                log,
		cron:                  cron.New(),
	}
}

type schedulerService struct {
	scanService           ScanService
	settingsService       SettingsService
	recommendationService RecommendationService
	marketRepo            repository.MarketRepository
	sources               []repository.MarketSourceRepository
	logger                *logger.Logger
	cron                  *cron.Cron

	mu         sync.Mutex
	lastScanAt time.Time
}

// Start registers the cron entries and starts the scheduler. The scan
// interval lives in settings and can change at runtime, so the scan entry
// fires frequently and checks whether a scan is due.
func (s *schedulerService) Start() error {
	if _, err := s.cron.AddFunc("@every 5m", s.maybeScan); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 1h", s.sweepResolutions); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running entries.
func (s *schedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *schedulerService) maybeScan() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := s.settingsService.Get(ctx)
	if err != nil {
		s.logger.Warn("Failed to load settings for scheduled scan", logger.ErrorField(err))
		return
	}
	interval := time.Duration(settings.ScanIntervalHours) * time.Hour

	s.mu.Lock()
	due := s.lastScanAt.IsZero() || time.Since(s.lastScanAt) >= interval
	s.mu.Unlock()
	if !due {
		return
	}

	resp, err := s.scanService.Trigger(ctx)
	if err != nil {
		// A manual scan may already be running; that run counts.
		if !errors.Is(err, apperrors.ErrConflict) {
			s.logger.Warn("Scheduled scan trigger failed", logger.ErrorField(err))
			return
		}
	}

	s.mu.Lock()
	s.lastScanAt = time.Now()
	s.mu.Unlock()

	if resp != nil {
		s.logger.Info("Scheduled scan triggered", logger.StringField("job_id", resp.JobID))
	}
}

// sweepResolutions asks each platform for the outcome of every unresolved
// market it owns and resolves the ones that settled. Platform errors skip
// that market until the next sweep.
func (s *schedulerService) sweepResolutions() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	markets, err := s.marketRepo.FindUnresolved(ctx)
	if err != nil {
		s.logger.Warn("Failed to list unresolved markets", logger.ErrorField(err))
		return
	}
	if len(markets) == 0 {
		return
	}

	byPlatform := make(map[string]repository.MarketSourceRepository, len(s.sources))
	for _, source := range s.sources {
		byPlatform[string(source.Platform())] = source
	}

	var resolved int
	for i := range markets {
		market := &markets[i]
		source, ok := byPlatform[string(market.Platform)]
		if !ok {
			continue
		}

		outcome, err := source.FetchResolution(ctx, market.PlatformID)
		if err != nil {
			s.logger.Warn("Resolution check failed",
				logger.Field("market_id", market.ID),
				logger.ErrorField(err),
			)
			continue
		}
		if outcome == nil {
			continue
		}

		if err := s.recommendationService.ResolveMarket(ctx, market.ID, *outcome); err != nil {
			s.logger.Warn("Failed to resolve market",
				logger.Field("market_id", market.ID),
				logger.ErrorField(err),
			)
			continue
		}
		resolved++
	}

	if resolved > 0 {
		s.logger.Info("Resolution sweep finished",
			logger.IntField("checked", len(markets)),
			logger.IntField("resolved", resolved),
		)
	}
}
