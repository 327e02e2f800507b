package handler

import (
	"github.com/labstack/echo/v4"

	"firechat/internal/usecase"
	"firechat/pkg/response"
)

type AuthHandler struct {
	sessions *usecase.SessionManager
}

func NewAuthHandler(sessions *usecase.SessionManager) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
	}
}

type signUpRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required,notblank"`
}

type signInRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required"`
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	session, err := h.sessions.SignUp(c.Request().Context(), usecase.SignUpInput{
		Identifier:  req.Identifier,
		Secret:      req.Password,
		DisplayName: req.Name,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, session)
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	session, err := h.sessions.SignIn(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, session)
}

func (h *AuthHandler) SignOut(c echo.Context) error {
	h.sessions.SignOut()
	return response.NoContent(c)
}

func (h *AuthHandler) Session(c echo.Context) error {
	return response.Success(c, currentSession(c))
}
