package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository only appends and reads; history rows are never changed.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *model.HistoryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *HistoryRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]model.HistoryLog, error) {
	var entries []model.HistoryLog
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *HistoryRepository) ListByResource(ctx context.Context, resourceType model.ResourceType, resourceID uuid.UUID) ([]model.HistoryLog, error) {
	var entries []model.HistoryLog
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at").
		Find(&entries).Error
	return entries, err
}
