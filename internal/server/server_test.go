package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"workhub/internal/audit"
	"workhub/internal/auth"
	"workhub/internal/handler"
	"workhub/internal/lock"
	"workhub/internal/model"
	"workhub/internal/notify"
	"workhub/internal/repository"
	"workhub/internal/server"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const jwtSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	repos  *repository.Repositories
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "server.db") + "?_pragma=busy_timeout(5000)"
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

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := repository.New(db)
	dispatcher := notify.NewDispatcher(notify.NewLogSender(log), log)
	t.Cleanup(dispatcher.Wait)

	deps := service.Deps{
		Repos:             repos,
		Locker:            lock.NewMemoryLocker(),
		Audit:             audit.NewRecorder(repos.History, log),
		Notifier:          dispatcher,
		Grants:            auth.NewGrantSigner([]byte("grant-secret"), time.Now),
		Logger:            log,
		LockWait:          time.Second,
		DeleteParallelism: 2,
	}
	cascade := service.NewCascade(deps)
	router := server.NewRouter(server.Handlers{
		Users:       handler.NewUserHandler(service.NewUserService(deps), log),
		Workspaces:  handler.NewWorkspaceHandler(service.NewWorkspaceService(deps), cascade, log),
		Projects:    handler.NewProjectHandler(service.NewProjectService(deps), cascade, log),
		Sprints:     handler.NewSprintHandler(service.NewScheduler(deps), log),
		Activities:  handler.NewActivityHandler(service.NewActivityService(deps), log),
		Invitations: handler.NewInvitationHandler(service.NewInvitationService(deps), log),
	}, repos.Ping, jwtSecret)

	return &testServer{router: router, repos: repos}
}

func (s *testServer) token(t *testing.T, name string) string {
	t.Helper()
	u := &model.User{Email: name + "@example.com", Name: name}
	require.NoError(t, s.repos.Users.Create(context.Background(), u))
	tok, err := auth.GenerateToken([]byte(jwtSecret), u.ID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthz_Unavailable(t *testing.T) {
	router := server.NewRouter(server.Handlers{}, func(context.Context) error {
		return errors.New("connection refused")
	}, jwtSecret)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSwaggerDocServed(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[map[string]any](t, w)
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/sprints/{id}/add-activity/{activityId}")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/me", "/workspaces", "/projects/not-a-uuid"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := s.do(t, http.MethodGet, "/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWorkFlow_BacklogToSprint(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	w := s.do(t, http.MethodPost, "/workspaces", alice, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ws := decode[model.Workspace](t, w)

	w = s.do(t, http.MethodPost, "/projects/"+ws.ID.String()+"/create-project", alice, map[string]string{"name": "Website"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[model.Project](t, w)

	w = s.do(t, http.MethodPost, "/projects/"+project.ID.String()+"/backlog/activities", alice, map[string]string{"title": "Landing page"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	activity := decode[model.Activity](t, w)

	w = s.do(t, http.MethodPost, "/sprints/"+project.ID.String()+"/backlog/create-sprint", alice, map[string]string{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sprint := decode[model.Sprint](t, w)
	assert.Equal(t, "Sprint 1", sprint.Name)

	w = s.do(t, http.MethodPost, "/sprints/"+sprint.ID.String()+"/add-activity/"+activity.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/projects/"+project.ID.String()+"/backlog/activities", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	backlog := decode[model.Backlog](t, w)
	assert.Empty(t, backlog.Activities)
	require.Len(t, backlog.Sprints, 1)
	require.Len(t, backlog.Sprints[0].Activities, 1)
	assert.Equal(t, activity.ID, backlog.Sprints[0].Activities[0].ID)

	// An outsider sees nothing of the workspace.
	bob := s.token(t, "bob")
	w = s.do(t, http.MethodGet, "/projects/"+project.ID.String()+"/backlog/activities", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/workspaces/"+ws.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/workspaces/"+ws.ID.String(), alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
