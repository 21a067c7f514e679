package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResourceType string

const (
	ResourceWorkspace   ResourceType = "workspace"
	ResourceProject     ResourceType = "project"
	ResourceSprint      ResourceType = "sprint"
	ResourceActivity    ResourceType = "activity"
	ResourceComment     ResourceType = "comment"
	ResourceInvitation  ResourceType = "invitation"
	ResourceJoinRequest ResourceType = "join_request"
)

// HistoryLog is append-only. Nothing updates or deletes it.
type HistoryLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	WorkspaceID  *uuid.UUID        `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	Action       string            `gorm:"not null" json:"action"`
	ResourceType ResourceType      `gorm:"type:varchar(32);not null" json:"resource_type"`
	ResourceID   uuid.UUID         `gorm:"type:uuid;not null" json:"resource_id"`
	Details      datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (h *HistoryLog) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
