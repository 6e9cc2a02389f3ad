package model

import (
	"time"

	"gorm.io/gorm"
)

// BatchRun is the audit record for one ingestion batch.
type BatchRun struct {
	ID           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID        string         `json:"run_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	Fetched      int            `json:"fetched"`
	Tickets      int            `json:"tickets"`
	Comments     int            `json:"comments"`
	Discarded    int            `json:"discarded"`
	Quarantined  int            `json:"quarantined"`
	Skipped      int            `json:"skipped"`
	HardErrors   int            `json:"hard_errors"`
	DurationMs   int64          `json:"duration_ms"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	ErrorSummary string         `json:"error_summary" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for BatchRun
func (BatchRun) TableName() string {
	return "batch_runs"
}
