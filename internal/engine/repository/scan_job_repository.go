package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"market-edge-engine/internal/entity"
)

// ScanJobRepository defines data operations for scan job run records.
type ScanJobRepository interface {
	Create(ctx context.Context, job *entity.ScanJob) error
	Update(ctx context.Context, job *entity.ScanJob) error
	FindLatest(ctx context.Context) (*entity.ScanJob, error)
	FindNonTerminal(ctx context.Context) (*entity.ScanJob, error)
}

// NewScanJobRepository creates a new GORM-based scan job repository.
func NewScanJobRepository(db *gorm.DB) ScanJobRepository {
	return &scanJobRepository{db: db}
}

type scanJobRepository struct {
	db *gorm.DB
}

// Create persists a new scan job record.
func (r *scanJobRepository) Create(ctx context.Context, job *entity.ScanJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update persists the current counters and phase of a job.
func (r *scanJobRepository) Update(ctx context.Context, job *entity.ScanJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// FindLatest returns the most recently started job, or nil when none exists.
func (r *scanJobRepository) FindLatest(ctx context.Context) (*entity.ScanJob, error) {
	var job entity.ScanJob
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindNonTerminal returns the in-flight job, or nil when every job has
// finished.
func (r *scanJobRepository) FindNonTerminal(ctx context.Context) (*entity.ScanJob, error) {
	var job entity.ScanJob
	err := r.db.WithContext(ctx).
		Where("phase IN ?", []entity.ScanPhase{entity.ScanPhaseFetching, entity.ScanPhaseResearching}).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
