package router

import (
	"github.com/labstack/echo/v4"

	"firechat/internal/adapter/api/handler"
	"firechat/internal/adapter/api/middleware"
	"firechat/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, authLimiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e)
	SetupAuthRouter(e, authMiddleware, authLimiter)
	SetupUserRouter(e, authMiddleware)
	SetupChatRouter(e, authMiddleware)
	SetupWebSocketRouter(e, authMiddleware)
}

func SetupHealthRouter(e *echo.Echo) {
	e.GET("/health", handler.GetHealthHandler().CheckHealth)
}

// SetupAuthRouter initializes auth routes
func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, authLimiter *ratelimit.RateLimiter) {
	authHandler := handler.GetAuthHandler()

	public := e.Group("/v1/auth")
	public.Use(middleware.RateLimit(authLimiter, "auth"))
	public.POST("/signup", authHandler.SignUp)
	public.POST("/signin", authHandler.SignIn)

	protected := e.Group("/v1/auth")
	protected.Use(authMiddleware.Authenticate)
	protected.POST("/signout", authHandler.SignOut)
	protected.GET("/session", authHandler.Session)
}

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()

	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)
	users.GET("", userHandler.ListUsers)
	users.GET("/me", userHandler.GetProfile)
	users.PUT("/me", userHandler.UpdateProfile)
	users.GET("/:id", userHandler.GetUser)
}

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.GET("", chatHandler.ListChats)
	chatGroup.POST("", chatHandler.CreateChat)
	chatGroup.POST("/group", chatHandler.CreateGroupChat)
	chatGroup.GET("/unread", chatHandler.GetUnread)
	chatGroup.GET("/:id", chatHandler.GetChat)
	chatGroup.DELETE("/:id", chatHandler.LeaveChat)
	chatGroup.PUT("/:id/read", chatHandler.MarkRead)

	chatGroup.GET("/:id/messages", chatHandler.GetMessages)
	chatGroup.POST("/:id/messages", chatHandler.SendMessage)
	chatGroup.POST("/:id/images", chatHandler.SendImage)
}

func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", handler.GetWebSocketHandler().HandleWebSocket, authMiddleware.Authenticate)
}
