package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workhub/internal/apperr"
	"workhub/internal/handler"
	"workhub/internal/middleware"
	"workhub/internal/model"
	"workhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter(actor uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if actor != uuid.Nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, actor)
			c.Next()
		})
	}
	return r
}

func perform(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestSprintHandler_StartPassesFields(t *testing.T) {
	actor, sprintID := uuid.New(), uuid.New()
	scheduler := new(MockScheduler)
	h := handler.NewSprintHandler(scheduler, slog.Default())
	r := setupRouter(actor)
	r.PUT("/sprints/:id", h.Start)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	scheduler.On("StartSprint", mock.Anything, actor, sprintID, mock.MatchedBy(func(in service.SprintInput) bool {
		return in.Name != nil && *in.Name == "Sprint 7" &&
			in.Duration != nil && *in.Duration == model.SprintDurationOneWeek &&
			in.StartDay != nil && in.StartDay.Equal(start) &&
			in.FinishDay == nil && in.Goal == nil
	})).Return(&model.Sprint{Name: "Sprint 7", IsStarted: true}, nil)

	resp := perform(r, http.MethodPut, "/sprints/"+sprintID.String(), map[string]any{
		"name":      "Sprint 7",
		"duration":  "1 week",
		"start_day": start.Format(time.RFC3339),
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	var sprint model.Sprint
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sprint))
	assert.True(t, sprint.IsStarted)
	scheduler.AssertExpectations(t)
}

func TestSprintHandler_ErrorsMapToStatus(t *testing.T) {
	actor := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"precondition", apperr.PreconditionFailed("sprint has no activities"), http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
		{"forbidden", apperr.Forbidden("not a member"), http.StatusForbidden, "FORBIDDEN"},
		{"not found", apperr.NotFound("sprint not found"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperr.Conflict("another sprint is started"), http.StatusConflict, "CONFLICT"},
		{"invalid", apperr.Invalid("bad duration"), http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scheduler := new(MockScheduler)
			h := handler.NewSprintHandler(scheduler, slog.Default())
			r := setupRouter(actor)
			r.POST("/sprints/:id/finished", h.Finish)
			sprintID := uuid.New()
			scheduler.On("FinishSprint", mock.Anything, actor, sprintID).Return(nil, tc.err)

			resp := perform(r, http.MethodPost, "/sprints/"+sprintID.String()+"/finished", nil)

			assert.Equal(t, tc.status, resp.Code)
			body := decodeError(t, resp)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSprintHandler_InternalErrorsAreHidden(t *testing.T) {
	actor, sprintID := uuid.New(), uuid.New()
	var logs bytes.Buffer
	scheduler := new(MockScheduler)
	h := handler.NewSprintHandler(scheduler, slog.New(slog.NewTextHandler(&logs, nil)))
	r := setupRouter(actor)
	r.POST("/sprints/:id/achieved", h.Archive)
	scheduler.On("ArchiveEmptySprint", mock.Anything, actor, sprintID).
		Return(nil, apperr.Internal(errors.New("connection reset"), "save sprint"))

	resp := perform(r, http.MethodPost, "/sprints/"+sprintID.String()+"/achieved", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Error, "connection reset")
	assert.Contains(t, logs.String(), "connection reset")
}

func TestSprintHandler_CreateWithoutBody(t *testing.T) {
	actor, projectID := uuid.New(), uuid.New()
	scheduler := new(MockScheduler)
	h := handler.NewSprintHandler(scheduler, slog.Default())
	r := setupRouter(actor)
	r.POST("/sprints/:id/backlog/create-sprint", h.Create)
	scheduler.On("CreateSprint", mock.Anything, actor, projectID, service.SprintInput{}).
		Return(&model.Sprint{Name: "Sprint 1", Duration: model.SprintDurationTwoWeeks}, nil)

	resp := perform(r, http.MethodPost, "/sprints/"+projectID.String()+"/backlog/create-sprint", nil)

	assert.Equal(t, http.StatusCreated, resp.Code)
	scheduler.AssertExpectations(t)
}

func TestSprintHandler_BadPathIDs(t *testing.T) {
	scheduler := new(MockScheduler)
	h := handler.NewSprintHandler(scheduler, slog.Default())
	r := setupRouter(uuid.New())
	r.POST("/sprints/:id/add-activity/:activityId", h.AddActivity)

	resp := perform(r, http.MethodPost, "/sprints/"+uuid.NewString()+"/add-activity/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, resp).Code)
	scheduler.AssertNotCalled(t, "AddActivityToSprint", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlers_RequireActor(t *testing.T) {
	users := new(MockUsers)
	h := handler.NewUserHandler(users, slog.Default())
	r := setupRouter(uuid.Nil)
	r.GET("/me", h.Me)

	resp := perform(r, http.MethodGet, "/me", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	users.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
}

func TestUserHandler_Me(t *testing.T) {
	actor := uuid.New()
	users := new(MockUsers)
	h := handler.NewUserHandler(users, slog.Default())
	r := setupRouter(actor)
	r.GET("/me", h.Me)
	users.On("Me", mock.Anything, actor).Return(&service.Profile{
		User:       &model.User{ID: actor, Email: "ada@example.com", Name: "Ada"},
		Workspaces: []model.Workspace{},
	}, nil)

	resp := perform(r, http.MethodGet, "/me", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"email":"ada@example.com"`)
	assert.Contains(t, resp.Body.String(), `"workspaces":[]`)
}

func TestInvitationHandler_TokenRoutes(t *testing.T) {
	actor := uuid.New()
	invitations := new(MockInvitations)
	h := handler.NewInvitationHandler(invitations, slog.Default())
	r := setupRouter(actor)
	r.POST("/workspaces/accept-invite-token", h.AcceptInvite)
	r.POST("/workspaces/reject-join-request-token", h.RejectJoinRequestToken)

	t.Run("missing token", func(t *testing.T) {
		resp := perform(r, http.MethodPost, "/workspaces/accept-invite-token", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("accepted", func(t *testing.T) {
		workspaceID := uuid.New()
		invitations.On("AcceptInvite", mock.Anything, actor, "good-token").
			Return(&model.WorkspaceMember{WorkspaceID: workspaceID, UserID: actor, Role: model.WorkspaceRoleMember}, nil).Once()

		resp := perform(r, http.MethodPost, "/workspaces/accept-invite-token", handler.TokenRequest{Token: "good-token"})

		assert.Equal(t, http.StatusOK, resp.Code)
		var member model.WorkspaceMember
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &member))
		assert.Equal(t, workspaceID, member.WorkspaceID)
	})

	t.Run("replayed", func(t *testing.T) {
		invitations.On("AcceptInvite", mock.Anything, actor, "used-token").
			Return(nil, apperr.Conflict("already a member")).Once()

		resp := perform(r, http.MethodPost, "/workspaces/accept-invite-token", handler.TokenRequest{Token: "used-token"})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("reject with reason", func(t *testing.T) {
		invitations.On("RejectJoinRequestToken", mock.Anything, actor, "join-token", "team is full").Return(nil).Once()

		resp := perform(r, http.MethodPost, "/workspaces/reject-join-request-token", handler.RejectTokenRequest{Token: "join-token", Reason: "team is full"})

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	invitations.AssertExpectations(t)
}

func TestInvitationHandler_Invite(t *testing.T) {
	actor, workspaceID := uuid.New(), uuid.New()
	invitations := new(MockInvitations)
	h := handler.NewInvitationHandler(invitations, slog.Default())
	r := setupRouter(actor)
	r.POST("/workspaces/:id/invite-member", h.Invite)

	resp := perform(r, http.MethodPost, "/workspaces/"+workspaceID.String()+"/invite-member", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	invitations.On("Invite", mock.Anything, actor, workspaceID, service.InviteInput{Email: "bob@example.com", Role: model.WorkspaceRoleAdmin}).
		Return(&model.Invitation{Kind: model.GrantInvite, WorkspaceID: workspaceID, Role: model.WorkspaceRoleAdmin, Token: "secret"}, nil)

	resp = perform(r, http.MethodPost, "/workspaces/"+workspaceID.String()+"/invite-member", map[string]string{"email": "bob@example.com", "role": "admin"})

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.NotContains(t, resp.Body.String(), "secret")
	invitations.AssertExpectations(t)
}

func TestInvitationHandler_ListJoinRequests(t *testing.T) {
	actor, workspaceID := uuid.New(), uuid.New()
	invitations := new(MockInvitations)
	h := handler.NewInvitationHandler(invitations, slog.Default())
	r := setupRouter(actor)
	r.GET("/workspaces/:id/join-requests", h.ListJoinRequests)
	invitations.On("ListJoinRequests", mock.Anything, actor, workspaceID, model.GrantPending).Return(nil, nil)

	resp := perform(r, http.MethodGet, "/workspaces/"+workspaceID.String()+"/join-requests?status=pending", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
}

func TestWorkspaceHandler_History(t *testing.T) {
	actor, workspaceID := uuid.New(), uuid.New()
	workspaces := new(MockWorkspaceService)
	h := handler.NewWorkspaceHandler(workspaces, new(MockCascade), slog.Default())
	r := setupRouter(actor)
	r.GET("/workspaces/:id/history", h.History)

	resp := perform(r, http.MethodGet, "/workspaces/"+workspaceID.String()+"/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	workspaces.On("History", mock.Anything, actor, workspaceID, 20).
		Return([]model.HistoryLog{{Action: "sprint.finished"}}, nil)

	resp = perform(r, http.MethodGet, "/workspaces/"+workspaceID.String()+"/history?limit=20", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "sprint.finished")
	workspaces.AssertExpectations(t)
}

func TestWorkspaceHandler_CreateAndDelete(t *testing.T) {
	actor := uuid.New()
	workspaces := new(MockWorkspaceService)
	cascade := new(MockCascade)
	h := handler.NewWorkspaceHandler(workspaces, cascade, slog.Default())
	r := setupRouter(actor)
	r.POST("/workspaces", h.Create)
	r.DELETE("/workspaces/:id", h.Delete)

	resp := perform(r, http.MethodPost, "/workspaces", map[string]string{"color": "#fff"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	created := &model.Workspace{Base: model.Base{ID: uuid.New()}, Name: "Acme", OwnerID: actor}
	workspaces.On("Create", mock.Anything, actor, service.WorkspaceInput{Name: "Acme"}).Return(created, nil)
	resp = perform(r, http.MethodPost, "/workspaces", map[string]string{"name": "Acme"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	cascade.On("DeleteWorkspace", mock.Anything, actor, created.ID).Return(apperr.Forbidden("only the owner can delete the workspace"))
	resp = perform(r, http.MethodDelete, "/workspaces/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.True(t, strings.Contains(decodeError(t, resp).Error, "owner"))

	workspaces.AssertExpectations(t)
	cascade.AssertExpectations(t)
}

func TestActivityHandler_Subtasks(t *testing.T) {
	actor, activityID := uuid.New(), uuid.New()
	activities := new(MockActivities)
	h := handler.NewActivityHandler(activities, slog.Default())
	r := setupRouter(actor)
	r.POST("/activities/:id/subtasks", h.AddSubtask)
	r.PUT("/activities/:id/subtasks/:index", h.ToggleSubtask)

	resp := perform(r, http.MethodPut, "/activities/"+activityID.String()+"/subtasks/first", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	activities.On("ToggleSubtask", mock.Anything, actor, activityID, 2).Return(nil, apperr.NotFound("subtask 2 does not exist"))
	resp = perform(r, http.MethodPut, "/activities/"+activityID.String()+"/subtasks/2", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	activities.On("AddSubtask", mock.Anything, actor, activityID, "write docs").
		Return(&model.Activity{Subtasks: []model.Subtask{{Title: "write docs"}}}, nil)
	resp = perform(r, http.MethodPost, "/activities/"+activityID.String()+"/subtasks", handler.SubtaskRequest{Title: "write docs"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	activities.AssertExpectations(t)
}

func TestActivityHandler_CreateOnBacklog(t *testing.T) {
	actor, projectID, assignee := uuid.New(), uuid.New(), uuid.New()
	activities := new(MockActivities)
	h := handler.NewActivityHandler(activities, slog.Default())
	r := setupRouter(actor)
	r.POST("/projects/:id/backlog/activities", h.Create)

	activities.On("Create", mock.Anything, actor, projectID, service.ActivityInput{
		Title:     "Login page",
		TypeOf:    model.ActivityStory,
		Assignees: []uuid.UUID{assignee},
	}).Return(&model.Activity{Title: "Login page", IsOnBacklog: true}, nil)

	resp := perform(r, http.MethodPost, "/projects/"+projectID.String()+"/backlog/activities", map[string]any{
		"title":     "Login page",
		"type_of":   "Story",
		"assignees": []string{assignee.String()},
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	activities.AssertExpectations(t)
}
