package core

import "time"

// RunStatus represents the state of a job run in the ledger.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAbandoned RunStatus = "abandoned" // Released by the stale-run sweeper
)

// Run records one execution of a job by a worker.
type Run struct {
	JobID       string    `gorm:"primaryKey;size:255"`
	UoW         string    `gorm:"column:uow;index;size:255;not null"`
	FileID      string    `gorm:"index;size:255"`
	Status      RunStatus `gorm:"index;size:20;default:'running'"`
	Attempt     int       `gorm:"default:0"`
	WorkerID    string    `gorm:"size:255"`
	LastError   string    `gorm:"type:text"`
	StartedAt   time.Time `gorm:"index"`
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Run) TableName() string {
	return "job_runs"
}
