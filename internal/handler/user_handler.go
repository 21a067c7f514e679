package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Me godoc
// @Summary      The caller's profile and workspaces
// @Tags         Users
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} service.Profile
// @Failure      401 {object} ErrorResponse
// @Router       /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	profile, err := h.users.Me(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
