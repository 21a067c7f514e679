package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func (r *WorkspaceRepository) Create(ctx context.Context, workspace *model.Workspace) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(workspace).Error
}

func (r *WorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Workspace, error) {
	var workspace model.Workspace
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&workspace).Error; err != nil {
		return nil, notFound(err, ErrWorkspaceNotFound)
	}
	return &workspace, nil
}

// GetDetailed loads the workspace with its members and projects.
func (r *WorkspaceRepository) GetDetailed(ctx context.Context, id uuid.UUID) (*model.Workspace, error) {
	var workspace model.Workspace
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at") }).
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("id = ?", id).
		First(&workspace).Error
	if err != nil {
		return nil, notFound(err, ErrWorkspaceNotFound)
	}
	return &workspace, nil
}

// ListForUser returns the workspaces userID is a member of.
func (r *WorkspaceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Workspace, error) {
	var workspaces []model.Workspace
	err := r.db.WithContext(ctx).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ?", userID).
		Order("workspaces.created_at").
		Find(&workspaces).Error
	return workspaces, err
}

func (r *WorkspaceRepository) Update(ctx context.Context, workspace *model.Workspace) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(workspace).Error
}

func (r *WorkspaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Workspace{}).Error
}
