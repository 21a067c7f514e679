package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BacklogRepository struct {
	db *gorm.DB
}

func NewBacklogRepository(db *gorm.DB) *BacklogRepository {
	return &BacklogRepository{db: db}
}

func (r *BacklogRepository) Create(ctx context.Context, backlog *model.Backlog) error {
	return r.db.WithContext(ctx).Create(backlog).Error
}

func (r *BacklogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Backlog, error) {
	var backlog model.Backlog
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&backlog).Error; err != nil {
		return nil, notFound(err, ErrBacklogNotFound)
	}
	return &backlog, nil
}

func (r *BacklogRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*model.Backlog, error) {
	var backlog model.Backlog
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&backlog).Error; err != nil {
		return nil, notFound(err, ErrBacklogNotFound)
	}
	return &backlog, nil
}

func (r *BacklogRepository) IDsByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(projectIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Backlog{}).Where("project_id IN ?", projectIDs).Pluck("id", &ids).Error
	return ids, err
}

func (r *BacklogRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Backlog{}).Error
}
