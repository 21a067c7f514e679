package repository

import (
	"context"

	"workhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvitationRepository stores both invites and join requests, told apart by Kind.
type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, invitation *model.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	var invitation model.Invitation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invitation).Error; err != nil {
		return nil, notFound(err, ErrInvitationNotFound)
	}
	return &invitation, nil
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var invitation model.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, notFound(err, ErrInvitationNotFound)
	}
	return &invitation, nil
}

// FindPending returns the newest pending record of kind for the pair.
func (r *InvitationRepository) FindPending(ctx context.Context, kind model.GrantKind, workspaceID, userID uuid.UUID) (*model.Invitation, error) {
	var invitation model.Invitation
	err := r.db.WithContext(ctx).
		Where("kind = ? AND workspace_id = ? AND user_id = ? AND status = ?", kind, workspaceID, userID, model.GrantPending).
		Order("created_at DESC").
		First(&invitation).Error
	if err != nil {
		return nil, notFound(err, ErrInvitationNotFound)
	}
	return &invitation, nil
}

// List returns the workspace's records of kind, optionally filtered by status.
func (r *InvitationRepository) List(ctx context.Context, kind model.GrantKind, workspaceID uuid.UUID, status model.GrantStatus) ([]model.Invitation, error) {
	var invitations []model.Invitation
	query := r.db.WithContext(ctx).Where("kind = ? AND workspace_id = ?", kind, workspaceID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&invitations).Error
	return invitations, err
}

func (r *InvitationRepository) Update(ctx context.Context, invitation *model.Invitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

func (r *InvitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Invitation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepository) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Delete(&model.Invitation{}).Error
}
