package handler

import (
	"github.com/labstack/echo/v4"

	"firechat/internal/usecase"
	"firechat/pkg/response"
)

type UserHandler struct {
	directory *usecase.DirectoryUseCase
	sessions  *usecase.SessionManager
}

func NewUserHandler(directory *usecase.DirectoryUseCase, sessions *usecase.SessionManager) *UserHandler {
	return &UserHandler{
		directory: directory,
		sessions:  sessions,
	}
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=80"`
	About string `json:"about" validate:"max=500"`
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.directory.ListUsers(c.Request().Context(), currentSession(c).Email)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, users)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.directory.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.directory.GetUser(c.Request().Context(), currentSession(c).Email)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	session, err := h.sessions.UpdateProfile(c.Request().Context(), req.Name, req.About)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, session)
}
