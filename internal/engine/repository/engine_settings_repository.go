package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"market-edge-engine/internal/entity"
)

// defaultSettings seeds the singleton row on first read.
func defaultSettings() *entity.EngineSettings {
	flags, _ := json.Marshal(map[string]bool{
		string(entity.PlatformPolymarket): true,
		string(entity.PlatformKalshi):     true,
	})
	return &entity.EngineSettings{
		ID:                   1,
		MinEdgeThreshold:     0.10,
		KellyMultiplier:      0.33,
		MaxSingleBetFraction: 0.05,
		Bankroll:             1000,
		ScanIntervalHours:    6,
		MinVolume:            1000,
		EstimateCacheHours:   24,
		ReEstimateTrigger:    0.05,
		MarketsPerPlatform:   20,
		WebSearchMaxUses:     3,
		EnabledPlatforms:     flags,
	}
}

// EngineSettingsRepository defines data operations for the runtime settings
// record.
type EngineSettingsRepository interface {
	Get(ctx context.Context) (*entity.EngineSettings, error)
	Save(ctx context.Context, settings *entity.EngineSettings) error
}

// NewEngineSettingsRepository creates a new GORM-based settings repository.
func NewEngineSettingsRepository(db *gorm.DB) EngineSettingsRepository {
	return &engineSettingsRepository{db: db}
}

type engineSettingsRepository struct {
	db *gorm.DB
}

// Get returns the singleton settings row, seeding defaults on first use.
func (r *engineSettingsRepository) Get(ctx context.Context) (*entity.EngineSettings, error) {
	var settings entity.EngineSettings
	err := r.db.WithContext(ctx).First(&settings, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = *defaultSettings()
		if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save persists the settings record.
func (r *engineSettingsRepository) Save(ctx context.Context, settings *entity.EngineSettings) error {
	settings.ID = 1
	return r.db.WithContext(ctx).Save(settings).Error
}
