package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// DefaultHistoryLimit bounds ListRuns when no limit is given
const DefaultHistoryLimit = 20

// History records finished exports
type History struct {
	db *gorm.DB
}

// NewHistory wraps an already migrated database
func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

// RecordRun stores run, filling its UUID and ID
func (h *History) RecordRun(ctx context.Context, run *ExportRun) error {
	if err := h.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record export run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (h *History) ListRuns(ctx context.Context, limit int) ([]ExportRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var runs []ExportRun
	err := h.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list export runs: %w", err)
	}
	return runs, nil
}

// GetRun looks a run up by UUID
func (h *History) GetRun(ctx context.Context, id string) (*ExportRun, error) {
	var run ExportRun
	if err := h.db.WithContext(ctx).Where("uuid = ?", id).First(&run).Error; err != nil {
		return nil, fmt.Errorf("export run %s: %w", id, err)
	}
	return &run, nil
}
