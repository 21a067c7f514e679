package repository_test

import (
	"context"
	"testing"

	"workhub/internal/model"
	"workhub/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMemberRepository_UpdateRole(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewMemberRepository(gormDB)
	workspaceID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "workspace_members" SET "role"=\$1,"updated_at"=\$2 WHERE workspace_id = \$3 AND user_id = \$4`).
		WithArgs(model.WorkspaceRoleAdmin, sqlmock.AnyArg(), workspaceID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateRole(context.Background(), workspaceID, userID, model.WorkspaceRoleAdmin)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_UpdateRole_NotMember(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewMemberRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "workspace_members"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateRole(context.Background(), uuid.New(), uuid.New(), model.WorkspaceRoleViewer)

	assert.ErrorIs(t, err, repository.ErrMemberNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_Remove_NotMember(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewMemberRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "workspace_members" WHERE workspace_id = \$1 AND user_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Remove(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, repository.ErrMemberNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSprintRepository_CountStarted(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewSprintRepository(gormDB)
	backlogID, exclude := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "sprints" WHERE backlog_id = \$1 AND is_started = \$2 AND is_archived = \$3 AND id <> \$4`).
		WithArgs(backlogID, true, false, exclude).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountStarted(context.Background(), backlogID, exclude)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_DeleteByIDs_Empty(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewActivityRepository(gormDB)

	err := repo.DeleteByIDs(context.Background(), nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
