package handler

import (
	"github.com/labstack/echo/v4"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/service"
	"firechat/internal/usecase"
	"firechat/pkg/errors"
	"firechat/pkg/response"
	"firechat/pkg/utils"
)

const maxImageBytes = 10 << 20

type ChatHandler struct {
	chats     *usecase.ChatStore
	directory *usecase.DirectoryUseCase
	unread    *usecase.UnreadTracker
	resolver  *service.ChatNameResolver
}

func NewChatHandler(chats *usecase.ChatStore, directory *usecase.DirectoryUseCase, unread *usecase.UnreadTracker, resolver *service.ChatNameResolver) *ChatHandler {
	return &ChatHandler{
		chats:     chats,
		directory: directory,
		unread:    unread,
		resolver:  resolver,
	}
}

type createChatRequest struct {
	Recipient string `json:"recipient" validate:"required,notblank"`
}

type createGroupRequest struct {
	Name    string   `json:"name" validate:"required,notblank,max=100"`
	Members []string `json:"members" validate:"required,min=1,dive,required"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required,notblank,max=4000"`
}

type messagesResponse struct {
	Messages []entity.Message `json:"messages"`
	Page     utils.PageInfo   `json:"page"`
}

type unreadResponse struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// ListChats returns the viewer's chat list, newest first.
func (h *ChatHandler) ListChats(c echo.Context) error {
	session := currentSession(c)
	chats, err := h.chats.ListChats(c.Request().Context(), session.Membership())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, usecase.Summarize(chats, session.Email, h.resolver, h.unread))
}

// CreateChat opens the direct chat with recipient, creating it if needed.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	session := currentSession(c)
	others, err := h.directory.Memberships(ctx, []string{usecase.IdentifierFor(req.Recipient)})
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chats.FindOrCreateDirectChat(ctx, session.Membership(), others[0])
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, usecase.ViewChat(chat.ID, chat, session.Email))
}

func (h *ChatHandler) CreateGroupChat(c echo.Context) error {
	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	session := currentSession(c)
	ids := make([]string, len(req.Members))
	for i, m := range req.Members {
		ids[i] = usecase.IdentifierFor(m)
	}
	members, err := h.directory.Memberships(ctx, ids)
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chats.CreateGroupChat(ctx, session.Membership(), members, req.Name)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, usecase.ViewChat(chat.ID, chat, session.Email))
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	session := currentSession(c)
	chat, err := h.memberChat(c, session)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, usecase.ViewChat(chat.ID, chat, session.Email))
}

// GetMessages pages through the log newest first.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	session := currentSession(c)
	chat, err := h.memberChat(c, session)
	if err != nil {
		return response.Error(c, err)
	}

	page, info := utils.Paginate(service.DisplayOrder(chat.Messages), utils.GetPaginationParams(c))
	return response.Success(c, messagesResponse{Messages: page, Page: info})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.chats.SendText(c.Request().Context(), currentSession(c), c.Param("id"), req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

// SendImage accepts a multipart "image" field.
func (h *ChatHandler) SendImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, errors.Validation("image file is required", err))
	}
	if file.Size > maxImageBytes {
		return response.Error(c, errors.Validation("image is too large", nil))
	}
	contentType := file.Header.Get("Content-Type")

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read upload", err))
	}
	defer src.Close()

	msg, err := h.chats.SendImage(c.Request().Context(), currentSession(c), c.Param("id"), src, contentType)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

// MarkRead resets the chat's unread counter.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	if err := h.unread.OnChatOpened(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}

// LeaveChat soft-deletes the viewer; the chat is deleted once nobody is left.
func (h *ChatHandler) LeaveChat(c echo.Context) error {
	ctx := c.Request().Context()
	chatID := c.Param("id")
	deleted, err := h.chats.LeaveChat(ctx, chatID, currentSession(c).Email)
	if err != nil {
		return response.Error(c, err)
	}
	if err := h.unread.Forget(ctx, chatID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]bool{"deleted": deleted})
}

func (h *ChatHandler) GetUnread(c echo.Context) error {
	return response.Success(c, unreadResponse{
		Total:  h.unread.TotalUnread(),
		Counts: h.unread.Counts(),
	})
}

func (h *ChatHandler) memberChat(c echo.Context, session *entity.Session) (*entity.ChatDocument, error) {
	chat, err := h.chats.GetChat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if !service.IsMember(chat, session.Email) {
		return nil, errors.PermissionDenied("Not a member of this chat", nil)
	}
	return chat, nil
}
