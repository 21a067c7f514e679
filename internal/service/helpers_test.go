package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"workhub/internal/apperr"
	"workhub/internal/auth"
	"workhub/internal/lock"
	"workhub/internal/model"
	"workhub/internal/repository"
	"workhub/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMessage struct {
	To, Subject, Body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *fakeNotifier) Notify(to, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject, Body: body})
}

func (n *fakeNotifier) To(addr string) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, m := range n.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	ctx    context.Context
	db     *gorm.DB
	repos  *repository.Repositories
	locker *lock.MemoryLocker
	clock  *clock
	notes  *fakeNotifier

	users       *service.UserService
	workspaces  *service.WorkspaceService
	projects    *service.ProjectService
	scheduler   *service.Scheduler
	activities  *service.ActivityService
	cascade     *service.Cascade
	invitations *service.InvitationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "workhub.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	c := &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	notes := &fakeNotifier{}
	repos := repository.New(db)
	locker := lock.NewMemoryLocker()
	deps := service.Deps{
		Repos:             repos,
		Locker:            locker,
		Notifier:          notes,
		Grants:            auth.NewGrantSigner([]byte("grant-secret"), c.Now),
		Now:               c.Now,
		DeleteParallelism: 3,
	}

	return &testEnv{
		ctx:         context.Background(),
		db:          db,
		repos:       repos,
		locker:      locker,
		clock:       c,
		notes:       notes,
		users:       service.NewUserService(deps),
		workspaces:  service.NewWorkspaceService(deps),
		projects:    service.NewProjectService(deps),
		scheduler:   service.NewScheduler(deps),
		activities:  service.NewActivityService(deps),
		cascade:     service.NewCascade(deps),
		invitations: service.NewInvitationService(deps),
	}
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Email: name + "@example.com", Name: name}
	require.NoError(t, e.repos.Users.Create(e.ctx, u))
	return u
}

func (e *testEnv) workspace(t *testing.T, owner uuid.UUID) *model.Workspace {
	t.Helper()
	ws, err := e.workspaces.Create(e.ctx, owner, service.WorkspaceInput{Name: "Acme", Color: "#ff8800"})
	require.NoError(t, err)
	return ws
}

func (e *testEnv) project(t *testing.T, actor, workspaceID uuid.UUID) *model.Project {
	t.Helper()
	p, err := e.projects.Create(e.ctx, actor, workspaceID, service.ProjectInput{Name: "Website"})
	require.NoError(t, err)
	return p
}

func (e *testEnv) sprint(t *testing.T, actor, projectID uuid.UUID) *model.Sprint {
	t.Helper()
	s, err := e.scheduler.CreateSprint(e.ctx, actor, projectID, service.SprintInput{})
	require.NoError(t, err)
	return s
}

func (e *testEnv) activity(t *testing.T, actor, projectID uuid.UUID, title string) *model.Activity {
	t.Helper()
	a, err := e.activities.Create(e.ctx, actor, projectID, service.ActivityInput{Title: title})
	require.NoError(t, err)
	return a
}

// addMember puts userID straight into the workspace and, when projectID is
// set, the project.
func (e *testEnv) addMember(t *testing.T, workspaceID, userID uuid.UUID, role model.WorkspaceRole, projectID uuid.UUID, projectRole model.ProjectRole) {
	t.Helper()
	require.NoError(t, e.repos.Members.Add(e.ctx, &model.WorkspaceMember{
		WorkspaceID: workspaceID, UserID: userID, Role: role, JoinedAt: e.clock.Now(),
	}))
	if projectID != uuid.Nil {
		require.NoError(t, e.repos.ProjectMembers.Add(e.ctx, &model.ProjectMember{
			ProjectID: projectID, UserID: userID, Role: projectRole,
		}))
	}
}

func (e *testEnv) backlog(t *testing.T, actor, projectID uuid.UUID) *model.Backlog {
	t.Helper()
	b, err := e.projects.Backlog(e.ctx, actor, projectID)
	require.NoError(t, err)
	return b
}

// assertPlacementExclusive fails if any activity shows up in more than one
// of the backlog list and the sprint lists.
func assertPlacementExclusive(t *testing.T, b *model.Backlog) {
	t.Helper()
	seen := map[uuid.UUID]string{}
	note := func(id uuid.UUID, where string) {
		if prev, ok := seen[id]; ok {
			t.Errorf("activity %s is in both %s and %s", id, prev, where)
		}
		seen[id] = where
	}
	for _, a := range b.Activities {
		note(a.ID, "backlog")
	}
	for _, s := range append(append([]model.Sprint{}, b.Sprints...), b.FinishedSprints...) {
		for _, a := range s.Activities {
			note(a.ID, "sprint "+s.Name)
		}
	}
}

func activityIDs(activities []model.Activity) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	return ids
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
	}
}

func (e *testEnv) count(t *testing.T, m any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}
