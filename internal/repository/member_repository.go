package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberRepository stores workspace memberships.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Add(ctx context.Context, member *model.WorkspaceMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *MemberRepository) Get(ctx context.Context, workspaceID, userID uuid.UUID) (*model.WorkspaceMember, error) {
	var member model.WorkspaceMember
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	return &member, nil
}

func (r *MemberRepository) List(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error) {
	var members []model.WorkspaceMember
	err := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("joined_at").Find(&members).Error
	return members, err
}

func (r *MemberRepository) ListByRoles(ctx context.Context, workspaceID uuid.UUID, roles ...model.WorkspaceRole) ([]model.WorkspaceMember, error) {
	var members []model.WorkspaceMember
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND role IN ?", workspaceID, roles).
		Order("joined_at").
		Find(&members).Error
	return members, err
}

func (r *MemberRepository) UpdateRole(ctx context.Context, workspaceID, userID uuid.UUID, role model.WorkspaceRole) error {
	result := r.db.WithContext(ctx).Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) Remove(ctx context.Context, workspaceID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&model.WorkspaceMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Delete(&model.WorkspaceMember{}).Error
}
