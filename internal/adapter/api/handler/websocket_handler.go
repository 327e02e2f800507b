package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"firechat/internal/adapter/api/middleware"
	"firechat/internal/domain/entity"
	"firechat/internal/domain/service"
	ws "firechat/internal/infrastructure/websocket"
	"firechat/internal/usecase"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
	"firechat/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	upgrader  gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API listens for the local UI only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get(middleware.ContextUID).(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(context.Background(), userID, conn)
	h.wsManager.Register <- client

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}

// ChatDispatcher serves websocket requests for the signed-in session.
type ChatDispatcher struct {
	sessions *usecase.SessionManager
	chats    *usecase.ChatStore
	unread   *usecase.UnreadTracker
}

func NewChatDispatcher(sessions *usecase.SessionManager, chats *usecase.ChatStore, unread *usecase.UnreadTracker) *ChatDispatcher {
	return &ChatDispatcher{
		sessions: sessions,
		chats:    chats,
		unread:   unread,
	}
}

func (d *ChatDispatcher) session(client *ws.Client) (*entity.Session, error) {
	session, err := d.sessions.Require()
	if err != nil {
		return nil, err
	}
	if session.UID != client.UserID {
		return nil, errors.PermissionDenied("Connection does not belong to the signed-in user", nil)
	}
	return session, nil
}

// JoinChat streams the chat to the client until the returned dispose runs.
// The chat counts as read while it is open.
func (d *ChatDispatcher) JoinChat(ctx context.Context, client *ws.Client, chatID string) (func(), error) {
	session, err := d.session(client)
	if err != nil {
		return nil, err
	}

	sub, err := d.chats.SubscribeToChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	first, ok := <-sub.Updates()
	if !ok {
		err := sub.Err()
		if err == nil {
			err = errors.Unavailable("Chat subscription closed", nil)
		}
		return nil, err
	}
	if first.Exists && !service.IsMember(first.Chat, session.Email) {
		sub.Dispose()
		return nil, errors.PermissionDenied("Not a member of this chat", nil)
	}

	d.deliver(ctx, client, session, first)
	go func() {
		for snapshot := range sub.Updates() {
			d.deliver(ctx, client, session, snapshot)
		}
		if err := sub.Err(); err != nil {
			logger.LogChatError(chatID, "watch_chat", err)
			client.Deliver(ws.MessageTypeError, chatID, ws.ErrorData{Code: errors.CodeUnavailable, Message: "Chat subscription ended"})
		}
	}()

	return sub.Dispose, nil
}

func (d *ChatDispatcher) deliver(ctx context.Context, client *ws.Client, session *entity.Session, snapshot entity.ChatSnapshot) {
	client.Deliver(ws.MessageTypeChatSnapshot, snapshot.ChatID, usecase.ViewChat(snapshot.ChatID, snapshot.Chat, session.Email))
	if snapshot.Exists {
		if err := d.unread.OnChatOpened(ctx, snapshot.ChatID); err != nil {
			logger.LogChatError(snapshot.ChatID, "mark_read", err)
		}
	}
}

func (d *ChatDispatcher) SendText(ctx context.Context, client *ws.Client, chatID, text string) error {
	session, err := d.session(client)
	if err != nil {
		return err
	}
	_, err = d.chats.SendText(ctx, session, chatID, text)
	return err
}

func (d *ChatDispatcher) MarkRead(ctx context.Context, client *ws.Client, chatID string) error {
	if _, err := d.session(client); err != nil {
		return err
	}
	return d.unread.OnChatOpened(ctx, chatID)
}
