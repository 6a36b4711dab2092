/**
 * @description
 * Sync run database model.
 * Maps to the 'sync_runs' table in PostgreSQL.
 * Persists the summary of every price sync run for auditing and the admin API.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunStatus defines the state of a sync run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// SyncRun represents one execution of the price sync pipeline for a source
// and date range.
type SyncRun struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Source   string    `gorm:"column:source;index:idx_sync_runs_source" json:"source"`
	FromDate time.Time `gorm:"column:from_date" json:"from_date"`
	ToDate   time.Time `gorm:"column:to_date" json:"to_date"`

	StartedAt  time.Time  `gorm:"column:started_at" json:"started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at"`
	Status     RunStatus  `gorm:"column:status;type:varchar(16);default:'RUNNING'" json:"status"`

	Materials int `gorm:"column:materials" json:"materials"` // symbols resolved for the source
	Fetched   int `gorm:"column:fetched" json:"fetched"`
	Inserted  int `gorm:"column:inserted" json:"inserted"`
	Updated   int `gorm:"column:updated" json:"updated"`
	Skipped   int `gorm:"column:skipped" json:"skipped"` // rows dropped by validation

	Failures     string `gorm:"column:failures;type:text" json:"failures"` // JSON array of failed units with reasons
	ErrorMessage string `gorm:"column:error_msg" json:"error_msg"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by SyncRun to `sync_runs`
func (SyncRun) TableName() string {
	return "sync_runs"
}

// BeforeCreate ensures UUID is generated if not present
func (r *SyncRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
