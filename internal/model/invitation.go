package model

import (
	"time"

	"github.com/google/uuid"
)

// GrantKind tags the two membership workflows that share one record shape.
type GrantKind string

const (
	GrantInvite      GrantKind = "invite"
	GrantJoinRequest GrantKind = "join_request"
)

type GrantStatus string

const (
	GrantPending  GrantStatus = "pending"
	GrantAccepted GrantStatus = "accepted"
	GrantRejected GrantStatus = "rejected"
)

// Invitation is either an admin-issued invite or a user-initiated join
// request. Invites are deleted when consumed; join requests reached by id
// keep their row with a final status.
type Invitation struct {
	Base
	Kind        GrantKind     `gorm:"type:varchar(16);not null;index:idx_grant_lookup" json:"kind"`
	WorkspaceID uuid.UUID     `gorm:"type:uuid;not null;index:idx_grant_lookup" json:"workspace_id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index:idx_grant_lookup" json:"user_id"`
	Role        WorkspaceRole `gorm:"type:varchar(16);not null" json:"role"`
	Status      GrantStatus   `gorm:"type:varchar(16);not null" json:"status"`
	Token       string        `gorm:"type:text;not null;uniqueIndex" json:"-"`
	IssuedBy    uuid.UUID     `gorm:"type:uuid;not null" json:"issued_by"`
	Message     string        `json:"message,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	ExpiresAt   time.Time     `gorm:"not null" json:"expires_at"`
	ResolvedBy  *uuid.UUID    `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Live reports whether the record still blocks a new one for the same pair.
func (i *Invitation) Live(now time.Time) bool {
	return i.Status == GrantPending && !i.Expired(now)
}
