// Package handler exposes the services over HTTP with gin.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"workhub/internal/apperr"
	"workhub/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MessageResponse acknowledges operations that return no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

func actorID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not authenticated", Code: string(apperr.KindUnauthenticated)})
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Invalid user ID format", Code: string(apperr.KindInternal)})
		return uuid.Nil, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name + " format", Code: string(apperr.KindInvalid)})
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes the JSON body into req. An empty body is only validated,
// so requests whose fields are all optional may omit it.
func bind(c *gin.Context, req any) bool {
	var err error
	if c.Request.ContentLength == 0 {
		err = binding.Validator.ValidateStruct(req)
	} else {
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error(), Code: string(apperr.KindInvalid)})
		return false
	}
	return true
}

// respondError renders a service error. Internal faults are logged and
// replaced with a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: string(apperr.KindInternal)})
		return
	}
	c.JSON(apperr.HTTPStatus(appErr.Kind), ErrorResponse{Error: appErr.Message, Code: string(appErr.Kind)})
}
