package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	ws "firechat/internal/infrastructure/websocket"
	"firechat/internal/usecase"
	"firechat/pkg/response"
)

type HealthHandler struct {
	backend   string
	chats     *usecase.ChatStore
	wsManager *ws.Manager
}

func NewHealthHandler(backend string, chats *usecase.ChatStore, wsManager *ws.Manager) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		chats:     chats,
		wsManager: wsManager,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	status := map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().Format(time.RFC3339),
		"backend":     h.backend,
		"append_mode": h.chats.AppendMode(),
	}
	if h.wsManager != nil {
		status["connected_users"] = h.wsManager.ConnectedUsers()
	}
	return response.Success(c, status)
}
