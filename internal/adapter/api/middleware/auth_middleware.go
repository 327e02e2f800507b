package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"firechat/internal/usecase"
	"firechat/pkg/errors"
	"firechat/pkg/response"
)

const (
	ContextUID     = "uid"
	ContextSession = "session"
)

// AuthMiddleware admits requests whose ID token belongs to the user signed in
// to this process.
type AuthMiddleware struct {
	verifier usecase.TokenVerifier
	sessions *usecase.SessionManager
}

func NewAuthMiddleware(verifier usecase.TokenVerifier, sessions *usecase.SessionManager) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		sessions: sessions,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		uid, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil {
			return response.Error(c, err)
		}

		session := m.sessions.Current()
		if session == nil {
			return response.Error(c, errors.Unauthorized("Not signed in", nil))
		}
		if session.UID != uid {
			return response.Error(c, errors.PermissionDenied("Token does not belong to the signed-in user", nil))
		}

		c.Set(ContextUID, uid)
		c.Set(ContextSession, session)
		return next(c)
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter for websocket upgrades from browsers.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}
