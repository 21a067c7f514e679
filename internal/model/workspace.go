package model

import (
	"time"

	"github.com/google/uuid"
)

type WorkspaceRole string

const (
	WorkspaceRoleOwner  WorkspaceRole = "owner"
	WorkspaceRoleAdmin  WorkspaceRole = "admin"
	WorkspaceRoleMember WorkspaceRole = "member"
	WorkspaceRoleViewer WorkspaceRole = "viewer"
)

func (r WorkspaceRole) Valid() bool {
	switch r {
	case WorkspaceRoleOwner, WorkspaceRoleAdmin, WorkspaceRoleMember, WorkspaceRoleViewer:
		return true
	}
	return false
}

type Workspace struct {
	Base
	Name    string    `gorm:"not null" json:"name"`
	Color   string    `json:"color"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID" json:"projects,omitempty"`
}

// WorkspaceMember links a user to a workspace. Exactly one row per workspace
// carries the owner role and it always matches Workspace.OwnerID.
type WorkspaceMember struct {
	Base
	WorkspaceID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_member" json:"workspace_id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_member;index" json:"user_id"`
	Role        WorkspaceRole `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt    time.Time     `gorm:"not null" json:"joined_at"`
}
