package handler

import (
	"github.com/labstack/echo/v4"

	"firechat/internal/adapter/api/middleware"
	"firechat/internal/domain/entity"
	"firechat/internal/domain/service"
	ws "firechat/internal/infrastructure/websocket"
	"firechat/internal/usecase"
)

var (
	authHandler      *AuthHandler
	userHandler      *UserHandler
	chatHandler      *ChatHandler
	healthHandler    *HealthHandler
	websocketHandler *WebSocketHandler
)

// Dependencies carries everything the handlers are built from.
type Dependencies struct {
	Sessions  *usecase.SessionManager
	Directory *usecase.DirectoryUseCase
	Chats     *usecase.ChatStore
	Unread    *usecase.UnreadTracker
	Resolver  *service.ChatNameResolver
	Hub       *ws.Manager
	Backend   string
}

func Setup(deps Dependencies) {
	authHandler = NewAuthHandler(deps.Sessions)
	userHandler = NewUserHandler(deps.Directory, deps.Sessions)
	chatHandler = NewChatHandler(deps.Chats, deps.Directory, deps.Unread, deps.Resolver)
	healthHandler = NewHealthHandler(deps.Backend, deps.Chats, deps.Hub)
	websocketHandler = NewWebSocketHandler(deps.Hub)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return websocketHandler
}

// currentSession is set by the auth middleware on every protected route.
func currentSession(c echo.Context) *entity.Session {
	session, _ := c.Get(middleware.ContextSession).(*entity.Session)
	return session
}
