package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/security"
)

// abandonedMessage is recorded on runs released by the sweeper.
const abandonedMessage = "run abandoned: no completion before stale deadline"

// GormStorage implements core.Metadata and core.RunLedger using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&FileAttribute{}, &ArtifactRecord{}, &core.Run{})
}

// UpdateFileAttributes merges patch into the file's attributes. Keys in patch
// overwrite stored values; other keys are left alone.
func (s *GormStorage) UpdateFileAttributes(ctx context.Context, fileID string, patch map[string]any) error {
	if fileID == "" {
		return core.ErrMissingFile
	}
	if len(patch) == 0 {
		return nil
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]FileAttribute, 0, len(keys))
	for _, k := range keys {
		value, err := json.Marshal(patch[k])
		if err != nil {
			return fmt.Errorf("encode attribute %q: %w", k, err)
		}
		rows = append(rows, FileAttribute{FileID: fileID, Key: k, Value: value})
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rows).Error
}

// GetFileAttributes returns the merged attribute set of a file. A file with
// no attributes yields an empty map.
func (s *GormStorage) GetFileAttributes(ctx context.Context, fileID string) (map[string]any, error) {
	var rows []FileAttribute
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]any, len(rows))
	for _, row := range rows {
		dec := json.NewDecoder(bytes.NewReader(row.Value))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode attribute %q: %w", row.Key, err)
		}
		attrs[row.Key] = v
	}
	return attrs, nil
}

// CreateArtifact records an artifact for the file.
func (s *GormStorage) CreateArtifact(ctx context.Context, fileID string, artifact core.Artifact) error {
	if fileID == "" {
		return core.ErrMissingFile
	}
	rec := ArtifactRecord{
		ID:       uuid.New().String(),
		FileID:   fileID,
		Kind:     artifact.Kind,
		MIME:     artifact.MIME,
		Bytes:    artifact.Bytes,
		Location: artifact.Location,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// ListArtifacts returns the artifacts recorded for a file, oldest first.
func (s *GormStorage) ListArtifacts(ctx context.Context, fileID string) ([]core.Artifact, error) {
	var rows []ArtifactRecord
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]core.Artifact, len(rows))
	for i, row := range rows {
		out[i] = row.Artifact()
	}
	return out, nil
}

// StartRun records that workerID picked up job. A job seen before gets its
// attempt counter bumped and is marked running again.
func (s *GormStorage) StartRun(ctx context.Context, job core.Job, workerID string) error {
	if job.JobID == "" {
		return core.ErrMissingJobID
	}
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run core.Run
		err := tx.First(&run, "job_id = ?", job.JobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&core.Run{
				JobID:     job.JobID,
				UoW:       job.UoW,
				FileID:    job.File.ID,
				Status:    core.RunRunning,
				Attempt:   1,
				WorkerID:  workerID,
				StartedAt: now,
			}).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&core.Run{}).
			Where("job_id = ?", job.JobID).
			Updates(map[string]any{
				"status":       core.RunRunning,
				"attempt":      gorm.Expr("attempt + 1"),
				"worker_id":    workerID,
				"last_error":   "",
				"started_at":   now,
				"completed_at": nil,
			}).Error
	})
}

// CompleteRun marks a running run as completed.
func (s *GormStorage) CompleteRun(ctx context.Context, jobID string) error {
	return s.finishRun(ctx, jobID, map[string]any{
		"status":       core.RunCompleted,
		"completed_at": time.Now(),
	})
}

// FailRun marks a running run as failed.
// Error messages are sanitized before storage.
func (s *GormStorage) FailRun(ctx context.Context, jobID string, errMsg string) error {
	return s.finishRun(ctx, jobID, map[string]any{
		"status":       core.RunFailed,
		"last_error":   security.SanitizeErrorMessage(errMsg),
		"completed_at": time.Now(),
	})
}

func (s *GormStorage) finishRun(ctx context.Context, jobID string, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("job_id = ? AND status = ?", jobID, core.RunRunning).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, jobID)
	}
	return nil
}

// ReleaseStaleRuns abandons runs that have been running longer than
// staleAfter and returns how many were released.
func (s *GormStorage) ReleaseStaleRuns(ctx context.Context, staleAfter time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-staleAfter)
	result := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("status = ?", core.RunRunning).
		Where("started_at < ?", cutoff).
		Updates(map[string]any{
			"status":       core.RunAbandoned,
			"last_error":   abandonedMessage,
			"completed_at": now,
		})
	return result.RowsAffected, result.Error
}

// GetRun retrieves a run by job ID.
func (s *GormStorage) GetRun(ctx context.Context, jobID string) (*core.Run, error) {
	var run core.Run
	err := s.db.WithContext(ctx).First(&run, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
