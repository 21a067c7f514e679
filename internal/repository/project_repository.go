package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	return &project, nil
}

func (r *ProjectRepository) GetWithMembers(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	return &project, nil
}

func (r *ProjectRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("created_at").Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

func (r *ProjectRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Project{}).Error
}

// ProjectMemberRepository stores project-level roles.
type ProjectMemberRepository struct {
	db *gorm.DB
}

func NewProjectMemberRepository(db *gorm.DB) *ProjectMemberRepository {
	return &ProjectMemberRepository{db: db}
}

func (r *ProjectMemberRepository) Add(ctx context.Context, member *model.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *ProjectMemberRepository) Get(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		return nil, notFound(err, ErrProjectMemberNotFound)
	}
	return &member, nil
}

func (r *ProjectMemberRepository) List(ctx context.Context, projectID uuid.UUID) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at").Find(&members).Error
	return members, err
}

func (r *ProjectMemberRepository) CountByRole(ctx context.Context, projectID uuid.UUID, role model.ProjectRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("project_id = ? AND role = ?", projectID, role).
		Count(&count).Error
	return count, err
}

func (r *ProjectMemberRepository) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectMemberNotFound
	}
	return nil
}

// RemoveFromWorkspace drops userID from every project of workspaceID.
func (r *ProjectMemberRepository) RemoveFromWorkspace(ctx context.Context, workspaceID, userID uuid.UUID) error {
	projects := r.db.Model(&model.Project{}).Select("id").Where("workspace_id = ?", workspaceID)
	return r.db.WithContext(ctx).
		Where("user_id = ? AND project_id IN (?)", userID, projects).
		Delete(&model.ProjectMember{}).Error
}

func (r *ProjectMemberRepository) DeleteByProjects(ctx context.Context, projectIDs []uuid.UUID) error {
	if len(projectIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("project_id IN ?", projectIDs).Delete(&model.ProjectMember{}).Error
}
