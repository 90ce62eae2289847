package entity

import (
	"database/sql"
	"time"
)

// ScanPhase is the phase of a market-scanning job.
type ScanPhase string

const (
	ScanPhaseIdle        ScanPhase = "idle"
	ScanPhaseFetching    ScanPhase = "fetching"
	ScanPhaseResearching ScanPhase = "researching"
	ScanPhaseComplete    ScanPhase = "complete"
	ScanPhaseFailed      ScanPhase = "failed"
)

// Terminal reports whether the phase is a terminal one.
func (p ScanPhase) Terminal() bool {
	return p == ScanPhaseComplete || p == ScanPhaseFailed
}

// ScanJob is the run record of one market scan. At most one non-terminal
// ScanJob exists at a time.
type ScanJob struct {
	ID                     string         `gorm:"primaryKey" json:"id"`
	Phase                  ScanPhase      `gorm:"not null;default:idle" json:"phase"`
	MarketsTotal           int            `gorm:"not null" json:"markets_total"`
	MarketsProcessed       int            `gorm:"not null" json:"markets_processed"`
	MarketsResearched      int            `gorm:"not null" json:"markets_researched"`
	MarketsSkipped         int            `gorm:"not null" json:"markets_skipped"`
	RecommendationsCreated int            `gorm:"not null" json:"recommendations_created"`
	CurrentMarket          string         `json:"current_market"`
	ErrorMessage           sql.NullString `json:"error_message"`
	StartedAt              time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt            sql.NullTime   `json:"completed_at"`
}

// TableName specifies the table name for the ScanJob model.
func (ScanJob) TableName() string {
	return "scan_jobs"
}
