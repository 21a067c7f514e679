package service_test

import (
	"context"
	"testing"
	"time"

	"workhub/internal/apperr"
	"workhub/internal/lock"
	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascade_DeleteProjectLeavesNoOrphans(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	w := env.workspace(t, owner.ID)
	p := env.project(t, owner.ID, w.ID)
	keep := env.project(t, owner.ID, w.ID)

	s := env.sprint(t, owner.ID, p.ID)
	inSprint := env.activity(t, owner.ID, p.ID, "in sprint")
	onBacklog := env.activity(t, owner.ID, p.ID, "on backlog")
	archived := env.activity(t, owner.ID, p.ID, "archived")
	_, err := env.scheduler.AddActivityToSprint(env.ctx, owner.ID, s.ID, inSprint.ID)
	require.NoError(t, err)
	_, err = env.activities.ToggleArchive(env.ctx, owner.ID, archived.ID)
	require.NoError(t, err)
	for _, a := range []*model.Activity{inSprint, onBacklog, archived} {
		_, err := env.activities.AddComment(env.ctx, owner.ID, a.ID, "note on "+a.Title)
		require.NoError(t, err)
	}
	survivor := env.activity(t, owner.ID, keep.ID, "other project")
	_, err = env.activities.AddComment(env.ctx, owner.ID, survivor.ID, "stays")
	require.NoError(t, err)

	require.NoError(t, env.cascade.DeleteProject(env.ctx, owner.ID, p.ID))

	assert.Zero(t, env.count(t, &model.Project{}, "id = ?", p.ID))
	assert.Zero(t, env.count(t, &model.Backlog{}, "id = ?", p.BacklogID))
	assert.Zero(t, env.count(t, &model.Sprint{}, "backlog_id = ?", p.BacklogID))
	assert.Zero(t, env.count(t, &model.Activity{}, "backlog_id = ?", p.BacklogID))
	assert.Zero(t, env.count(t, &model.ProjectMember{}, "project_id = ?", p.ID))
	assert.Zero(t, env.count(t, &model.Comment{}, "activity_id NOT IN (?)", env.db.Model(&model.Activity{}).Select("id")))

	assert.Equal(t, int64(1), env.count(t, &model.Comment{}, "activity_id = ?", survivor.ID))
	assert.Equal(t, int64(1), env.count(t, &model.Project{}, "id = ?", keep.ID))

	history, err := env.repos.History.ListByResource(env.ctx, model.ResourceProject, p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, "project.deleted", last.Action)
	assert.EqualValues(t, 3, last.Details["activities"])
	assert.EqualValues(t, 3, last.Details["comments"])

	_, err = env.projects.Get(env.ctx, owner.ID, p.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestCascade_DeleteProjectRequiresManager(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	contributor := env.user(t, "contributor")
	w := env.workspace(t, owner.ID)
	p := env.project(t, owner.ID, w.ID)
	env.addMember(t, w.ID, contributor.ID, model.WorkspaceRoleAdmin, p.ID, model.ProjectRoleContributor)

	err := env.cascade.DeleteProject(env.ctx, contributor.ID, p.ID)
	assertKind(t, err, apperr.KindForbidden)
	assert.Equal(t, int64(1), env.count(t, &model.Project{}, "id = ?", p.ID))

	err = env.cascade.DeleteProject(env.ctx, owner.ID, p.ID)
	require.NoError(t, err)

	err = env.cascade.DeleteProject(env.ctx, owner.ID, p.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestCascade_DeleteWorkspace(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	admin := env.user(t, "admin")
	invitee := env.user(t, "invitee")
	w := env.workspace(t, owner.ID)
	other := env.workspace(t, owner.ID)
	env.addMember(t, w.ID, admin.ID, model.WorkspaceRoleAdmin, uuid.Nil, "")

	for i := 0; i < 2; i++ {
		p := env.project(t, owner.ID, w.ID)
		s := env.sprint(t, owner.ID, p.ID)
		a := env.activity(t, owner.ID, p.ID, "work")
		_, err := env.scheduler.AddActivityToSprint(env.ctx, owner.ID, s.ID, a.ID)
		require.NoError(t, err)
		_, err = env.activities.AddComment(env.ctx, owner.ID, a.ID, "hello")
		require.NoError(t, err)
	}
	otherProject := env.project(t, owner.ID, other.ID)
	_, err := env.invitations.Invite(env.ctx, owner.ID, w.ID, service.InviteInput{Email: invitee.Email})
	require.NoError(t, err)

	err = env.cascade.DeleteWorkspace(env.ctx, admin.ID, w.ID)
	assertKind(t, err, apperr.KindForbidden)

	require.NoError(t, env.cascade.DeleteWorkspace(env.ctx, owner.ID, w.ID))

	assert.Zero(t, env.count(t, &model.Workspace{}, "id = ?", w.ID))
	assert.Zero(t, env.count(t, &model.WorkspaceMember{}, "workspace_id = ?", w.ID))
	assert.Zero(t, env.count(t, &model.Invitation{}, "workspace_id = ?", w.ID))
	assert.Zero(t, env.count(t, &model.Project{}, "workspace_id = ?", w.ID))
	assert.Zero(t, env.count(t, &model.Backlog{}, "id <> ?", otherProject.BacklogID))
	assert.Zero(t, env.count(t, &model.Sprint{}, "1 = 1"))
	assert.Zero(t, env.count(t, &model.Activity{}, "1 = 1"))
	assert.Zero(t, env.count(t, &model.Comment{}, "1 = 1"))

	assert.Equal(t, int64(1), env.count(t, &model.Workspace{}, "id = ?", other.ID))
	assert.Equal(t, int64(1), env.count(t, &model.Project{}, "id = ?", otherProject.ID))

	// History survives its workspace.
	assert.NotZero(t, env.count(t, &model.HistoryLog{}, "workspace_id = ?", w.ID))
	assert.Equal(t, int64(1), env.count(t, &model.HistoryLog{}, "workspace_id = ? AND action = ?", w.ID, "workspace.deleted"))
}

func TestCascade_DeleteWorkspaceWaitsForBacklogLease(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	w := env.workspace(t, owner.ID)
	env.project(t, owner.ID, w.ID)
	p := env.project(t, owner.ID, w.ID)

	release, err := env.locker.Acquire(env.ctx, lock.BacklogKey(p.BacklogID))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(env.ctx, 100*time.Millisecond)
	defer cancel()
	err = env.cascade.DeleteWorkspace(ctx, owner.ID, w.ID)
	assertKind(t, err, apperr.KindInternal)
	assert.Equal(t, int64(1), env.count(t, &model.Workspace{}, "id = ?", w.ID))
	assert.Equal(t, int64(2), env.count(t, &model.Project{}, "workspace_id = ?", w.ID))

	// The failed attempt gave its workspace lease back.
	leaseCtx, leaseCancel := context.WithTimeout(env.ctx, time.Second)
	defer leaseCancel()
	wsRelease, err := env.locker.Acquire(leaseCtx, lock.WorkspaceKey(w.ID))
	require.NoError(t, err)
	wsRelease()

	done := make(chan error, 1)
	go func() { done <- env.cascade.DeleteWorkspace(env.ctx, owner.ID, w.ID) }()
	select {
	case err := <-done:
		t.Fatalf("delete finished while the backlog was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	release()
	require.NoError(t, <-done)
	assert.Zero(t, env.count(t, &model.Workspace{}, "id = ?", w.ID))
	assert.Zero(t, env.count(t, &model.Project{}, "workspace_id = ?", w.ID))
}
