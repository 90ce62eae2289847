package service

import (
	"context"
	"encoding/json"
	"fmt"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

// SettingsService exposes the runtime decision thresholds. Updates take
// effect on the next read; no restart is needed.
type SettingsService interface {
	Get(ctx context.Context) (*entity.EngineSettings, error)
	Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*entity.EngineSettings, error)
	// EnabledPlatforms decodes the per-platform enable flags.
	EnabledPlatforms(settings *entity.EngineSettings) map[entity.Platform]bool
}

// NewSettingsService creates a new settings service.
func NewSettingsService(repo repository.EngineSettingsRepository, log *logger.Logger) SettingsService {
	return &settingsService{repo: repo, logger: log}
}

type settingsService struct {
	repo   repository.EngineSettingsRepository
	logger *logger.Logger
}

// Get returns the current settings record.
func (s *settingsService) Get(ctx context.Context) (*entity.EngineSettings, error) {
	return s.repo.Get(ctx)
}

// Update validates and applies the provided fields.
func (s *settingsService) Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*entity.EngineSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.MinEdgeThreshold != nil {
		if err := checkUnitRange("min_edge_threshold", *req.MinEdgeThreshold); err != nil {
			return nil, err
		}
		settings.MinEdgeThreshold = *req.MinEdgeThreshold
	}
	if req.KellyMultiplier != nil {
		if err := checkUnitRange("kelly_multiplier", *req.KellyMultiplier); err != nil {
			return nil, err
		}
		settings.KellyMultiplier = *req.KellyMultiplier
	}
	if req.MaxSingleBetFraction != nil {
		if err := checkUnitRange("max_single_bet_fraction", *req.MaxSingleBetFraction); err != nil {
			return nil, err
		}
		settings.MaxSingleBetFraction = *req.MaxSingleBetFraction
	}
	if req.Bankroll != nil {
		if *req.Bankroll < 0 {
			return nil, fmt.Errorf("%w: bankroll must be non-negative", apperrors.ErrInvalidInput)
		}
		settings.Bankroll = *req.Bankroll
	}
	if req.ScanIntervalHours != nil {
		if *req.ScanIntervalHours < 1 {
			return nil, fmt.Errorf("%w: scan_interval_hours must be at least 1", apperrors.ErrInvalidInput)
		}
		settings.ScanIntervalHours = *req.ScanIntervalHours
	}
	if req.MinVolume != nil {
		if *req.MinVolume < 0 {
			return nil, fmt.Errorf("%w: min_volume must be non-negative", apperrors.ErrInvalidInput)
		}
		settings.MinVolume = *req.MinVolume
	}
	if req.EstimateCacheHours != nil {
		if *req.EstimateCacheHours < 1 {
			return nil, fmt.Errorf("%w: estimate_cache_hours must be at least 1", apperrors.ErrInvalidInput)
		}
		settings.EstimateCacheHours = *req.EstimateCacheHours
	}
	if req.ReEstimateTrigger != nil {
		if err := checkUnitRange("re_estimate_trigger", *req.ReEstimateTrigger); err != nil {
			return nil, err
		}
		settings.ReEstimateTrigger = *req.ReEstimateTrigger
	}
	if req.MarketsPerPlatform != nil {
		if *req.MarketsPerPlatform < 1 {
			return nil, fmt.Errorf("%w: markets_per_platform must be at least 1", apperrors.ErrInvalidInput)
		}
		settings.MarketsPerPlatform = *req.MarketsPerPlatform
	}
	if req.WebSearchMaxUses != nil {
		if *req.WebSearchMaxUses < 0 {
			return nil, fmt.Errorf("%w: web_search_max_uses must be non-negative", apperrors.ErrInvalidInput)
		}
		settings.WebSearchMaxUses = *req.WebSearchMaxUses
	}
	if req.EnabledPlatforms != nil {
		flags, err := json.Marshal(req.EnabledPlatforms)
		if err != nil {
			return nil, fmt.Errorf("%w: enabled_platforms: %v", apperrors.ErrInvalidInput, err)
		}
		settings.EnabledPlatforms = flags
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	s.logger.Info("Engine settings updated")
	return settings, nil
}

// EnabledPlatforms decodes the per-platform enable flags; on a malformed
// record every platform is treated as disabled.
func (s *settingsService) EnabledPlatforms(settings *entity.EngineSettings) map[entity.Platform]bool {
	var raw map[string]bool
	if err := json.Unmarshal(settings.EnabledPlatforms, &raw); err != nil {
		s.logger.Error("Malformed enabled_platforms flags", logger.ErrorField(err))
		return nil
	}
	flags := make(map[entity.Platform]bool, len(raw))
	for k, v := range raw {
		flags[entity.Platform(k)] = v
	}
	return flags
}

func checkUnitRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be in [0,1]", apperrors.ErrInvalidInput, name)
	}
	return nil
}
