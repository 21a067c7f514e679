package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repositories groups every entity repository over one *gorm.DB, which is
// either the pool or an open transaction.
type Repositories struct {
	db *gorm.DB

	Users          *UserRepository
	Workspaces     *WorkspaceRepository
	Members        *MemberRepository
	Projects       *ProjectRepository
	ProjectMembers *ProjectMemberRepository
	Backlogs       *BacklogRepository
	Sprints        *SprintRepository
	Activities     *ActivityRepository
	Comments       *CommentRepository
	History        *HistoryRepository
	Invitations    *InvitationRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:             db,
		Users:          NewUserRepository(db),
		Workspaces:     NewWorkspaceRepository(db),
		Members:        NewMemberRepository(db),
		Projects:       NewProjectRepository(db),
		ProjectMembers: NewProjectMemberRepository(db),
		Backlogs:       NewBacklogRepository(db),
		Sprints:        NewSprintRepository(db),
		Activities:     NewActivityRepository(db),
		Comments:       NewCommentRepository(db),
		History:        NewHistoryRepository(db),
		Invitations:    NewInvitationRepository(db),
	}
}

// Transaction runs fn against repositories bound to a single transaction.
// Returning an error from fn rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
