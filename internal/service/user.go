package service

import (
	"context"

	"workhub/internal/apperr"
	"workhub/internal/model"
	"workhub/internal/repository"

	"github.com/google/uuid"
)

type Profile struct {
	User       *model.User       `json:"user"`
	Workspaces []model.Workspace `json:"workspaces"`
}

type UserService struct {
	base
}

func NewUserService(deps Deps) *UserService {
	return &UserService{base: newBase(deps)}
}

// Me returns the caller's profile. A token for a user the identity service
// no longer knows is treated as unauthenticated.
func (s *UserService) Me(ctx context.Context, actor uuid.UUID) (*Profile, error) {
	user, err := s.Repos.Users.GetByID(ctx, actor)
	if repository.IsNotFound(err) {
		return nil, apperr.Unauthenticated("unknown user")
	}
	if err != nil {
		return nil, storeErr(err, "get user")
	}
	workspaces, err := s.Repos.Workspaces.ListForUser(ctx, actor)
	if err != nil {
		return nil, storeErr(err, "list workspaces")
	}
	if workspaces == nil {
		workspaces = []model.Workspace{}
	}
	return &Profile{User: user, Workspaces: workspaces}, nil
}
