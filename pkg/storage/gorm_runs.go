package storage

import (
	"context"
	"sort"
	"time"

	"github.com/jdziat/simple-uow/pkg/core"
)

// RunStats counts runs of one unit of work by status.
type RunStats struct {
	UoW       string `json:"uow"`
	Running   int64  `json:"running"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Abandoned int64  `json:"abandoned"`
}

// RunFilter narrows SearchRuns.
type RunFilter struct {
	Status core.RunStatus
	UoW    string
	FileID string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// GetRunStats returns per unit of work run counts grouped by status,
// ordered by name.
func (s *GormStorage) GetRunStats(ctx context.Context) ([]*RunStats, error) {
	type row struct {
		UoW    string `gorm:"column:uow"`
		Status string
		Count  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Select("uow, status, count(*) as count").
		Group("uow, status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	statsMap := make(map[string]*RunStats)
	for _, r := range rows {
		st, ok := statsMap[r.UoW]
		if !ok {
			st = &RunStats{UoW: r.UoW}
			statsMap[r.UoW] = st
		}
		switch core.RunStatus(r.Status) {
		case core.RunRunning:
			st.Running += r.Count
		case core.RunCompleted:
			st.Completed += r.Count
		case core.RunFailed:
			st.Failed += r.Count
		case core.RunAbandoned:
			st.Abandoned += r.Count
		}
	}

	result := make([]*RunStats, 0, len(statsMap))
	for _, st := range statsMap {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UoW < result[j].UoW })
	return result, nil
}

// SearchRuns returns runs matching filter, newest first, with the total
// count before pagination.
func (s *GormStorage) SearchRuns(ctx context.Context, filter RunFilter) ([]*core.Run, int64, error) {
	q := s.db.WithContext(ctx).Model(&core.Run{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UoW != "" {
		q = q.Where("uow = ?", filter.UoW)
	}
	if filter.FileID != "" {
		q = q.Where("file_id = ?", filter.FileID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("started_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("started_at <= ?", filter.Until)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var runs []*core.Run
	err := q.Order("started_at DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// PurgeRuns deletes finished runs with the given status that completed
// before olderThan ago. Running runs are never purged.
func (s *GormStorage) PurgeRuns(ctx context.Context, status core.RunStatus, olderThan time.Duration) (int64, error) {
	if status == core.RunRunning {
		return 0, nil
	}
	result := s.db.WithContext(ctx).
		Where("status = ?", status).
		Where("completed_at < ?", time.Now().Add(-olderThan)).
		Delete(&core.Run{})
	return result.RowsAffected, result.Error
}
