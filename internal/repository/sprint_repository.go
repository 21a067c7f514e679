package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SprintRepository struct {
	db *gorm.DB
}

func NewSprintRepository(db *gorm.DB) *SprintRepository {
	return &SprintRepository{db: db}
}

func (r *SprintRepository) Create(ctx context.Context, sprint *model.Sprint) error {
	return r.db.WithContext(ctx).Create(sprint).Error
}

func (r *SprintRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Sprint, error) {
	var sprint model.Sprint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sprint).Error; err != nil {
		return nil, notFound(err, ErrSprintNotFound)
	}
	return &sprint, nil
}

func (r *SprintRepository) Update(ctx context.Context, sprint *model.Sprint) error {
	return r.db.WithContext(ctx).Save(sprint).Error
}

// ListByBacklog returns every sprint of the backlog, oldest first.
func (r *SprintRepository) ListByBacklog(ctx context.Context, backlogID uuid.UUID) ([]model.Sprint, error) {
	var sprints []model.Sprint
	err := r.db.WithContext(ctx).Where("backlog_id = ?", backlogID).Order("created_at").Find(&sprints).Error
	return sprints, err
}

// CountStarted counts running sprints of the backlog other than exclude.
func (r *SprintRepository) CountStarted(ctx context.Context, backlogID, exclude uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Sprint{}).
		Where("backlog_id = ? AND is_started = ? AND is_archived = ? AND id <> ?", backlogID, true, false, exclude).
		Count(&count).Error
	return count, err
}

func (r *SprintRepository) IDsByBacklogs(ctx context.Context, backlogIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(backlogIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Sprint{}).Where("backlog_id IN ?", backlogIDs).Pluck("id", &ids).Error
	return ids, err
}

func (r *SprintRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Sprint{}).Error
}
