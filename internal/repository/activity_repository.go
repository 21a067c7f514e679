package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error; err != nil {
		return nil, notFound(err, ErrActivityNotFound)
	}
	return &activity, nil
}

func (r *ActivityRepository) Update(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

func (r *ActivityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Activity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// ListOnBacklog returns the backlog's unscheduled, unarchived activities.
func (r *ActivityRepository) ListOnBacklog(ctx context.Context, backlogID uuid.UUID) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("backlog_id = ? AND is_on_backlog = ? AND is_archived = ?", backlogID, true, false).
		Order("position").
		Find(&activities).Error
	return activities, err
}

// ListInSprints returns the activities placed in any of sprintIDs.
func (r *ActivityRepository) ListInSprints(ctx context.Context, sprintIDs []uuid.UUID) ([]model.Activity, error) {
	var activities []model.Activity
	if len(sprintIDs) == 0 {
		return activities, nil
	}
	err := r.db.WithContext(ctx).
		Where("sprint_id IN ? AND is_on_sprint = ? AND is_archived = ?", sprintIDs, true, false).
		Order("position").
		Find(&activities).Error
	return activities, err
}

func (r *ActivityRepository) ListArchived(ctx context.Context, backlogID uuid.UUID) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("backlog_id = ? AND is_archived = ?", backlogID, true).
		Order("updated_at DESC").
		Find(&activities).Error
	return activities, err
}

func (r *ActivityRepository) CountInSprint(ctx context.Context, sprintID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Activity{}).
		Where("sprint_id = ? AND is_on_sprint = ? AND is_archived = ?", sprintID, true, false).
		Count(&count).Error
	return count, err
}

// NextBacklogPosition returns the position after the last backlog activity.
func (r *ActivityRepository) NextBacklogPosition(ctx context.Context, backlogID uuid.UUID) (int, error) {
	return r.nextPosition(ctx, "backlog_id = ? AND is_on_backlog = ?", backlogID, true)
}

func (r *ActivityRepository) NextSprintPosition(ctx context.Context, sprintID uuid.UUID) (int, error) {
	return r.nextPosition(ctx, "sprint_id = ? AND is_on_sprint = ?", sprintID, true)
}

func (r *ActivityRepository) nextPosition(ctx context.Context, query string, args ...any) (int, error) {
	var maxPosition struct {
		Max int
	}
	err := r.db.WithContext(ctx).Model(&model.Activity{}).
		Select("COALESCE(MAX(position), -1) as max").
		Where(query, args...).
		Scan(&maxPosition).Error

	return maxPosition.Max + 1, err
}

func (r *ActivityRepository) IDsByBacklogs(ctx context.Context, backlogIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(backlogIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Activity{}).Where("backlog_id IN ?", backlogIDs).Pluck("id", &ids).Error
	return ids, err
}

func (r *ActivityRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Activity{}).Error
}
