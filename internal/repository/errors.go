package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every entity-specific not-found error.
var ErrNotFound = errors.New("record not found")

var (
	ErrUserNotFound          = fmt.Errorf("user: %w", ErrNotFound)
	ErrWorkspaceNotFound     = fmt.Errorf("workspace: %w", ErrNotFound)
	ErrMemberNotFound        = fmt.Errorf("workspace member: %w", ErrNotFound)
	ErrProjectNotFound       = fmt.Errorf("project: %w", ErrNotFound)
	ErrProjectMemberNotFound = fmt.Errorf("project member: %w", ErrNotFound)
	ErrBacklogNotFound       = fmt.Errorf("backlog: %w", ErrNotFound)
	ErrSprintNotFound        = fmt.Errorf("sprint: %w", ErrNotFound)
	ErrActivityNotFound      = fmt.Errorf("activity: %w", ErrNotFound)
	ErrCommentNotFound       = fmt.Errorf("comment: %w", ErrNotFound)
	ErrInvitationNotFound    = fmt.Errorf("invitation: %w", ErrNotFound)
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
