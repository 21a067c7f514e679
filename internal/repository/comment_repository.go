package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, notFound(err, ErrCommentNotFound)
	}
	return &comment, nil
}

func (r *CommentRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).Where("activity_id = ?", activityID).Order("created_at").Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{}).Error
}

func (r *CommentRepository) DeleteByActivity(ctx context.Context, activityID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("activity_id = ?", activityID).Delete(&model.Comment{}).Error
}

func (r *CommentRepository) IDsByActivities(ctx context.Context, activityIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(activityIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("activity_id IN ?", activityIDs).Pluck("id", &ids).Error
	return ids, err
}

func (r *CommentRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Comment{}).Error
}
