package websocket

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"firechat/pkg/errors"
	"firechat/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeJoinChat     = "join_chat"
	MessageTypeLeaveChat    = "leave_chat"
	MessageTypeSendMessage  = "send_message"
	MessageTypeMarkRead     = "mark_read"
	MessageTypeChatSnapshot = "chat_snapshot"
	MessageTypeChatList     = "chat_list"
	MessageTypeUnreadTotal  = "unread_total"
	MessageTypeError        = "error"
)

// WebSocket Message Structure
type WSMessage struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type SendMessageData struct {
	Text string `json:"text"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode builds an outbound frame.
func Encode(msgType, chatID string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{
		Type:      msgType,
		ChatID:    chatID,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleClientMessage processes incoming WebSocket messages
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var wsMessage WSMessage

	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		logger.Warn("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendError(client, "", errors.Validation("Invalid message format", err))
		return
	}

	logger.Debug("WebSocket: Received message type '%s' from client %s", wsMessage.Type, client.UserID)

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, MessageTypePong, "", nil)

	case MessageTypeJoinChat:
		m.handleJoinChat(client, wsMessage.ChatID)

	case MessageTypeLeaveChat:
		client.leave(wsMessage.ChatID)

	case MessageTypeSendMessage:
		m.handleSendMessage(client, wsMessage)

	case MessageTypeMarkRead:
		if err := m.dispatcher.MarkRead(client.Context(), client, wsMessage.ChatID); err != nil {
			m.sendError(client, wsMessage.ChatID, err)
		}

	default:
		m.sendError(client, wsMessage.ChatID, errors.Validation("Unknown message type: "+wsMessage.Type, nil))
	}
}

func (m *Manager) handleJoinChat(client *Client, chatID string) {
	if chatID == "" {
		m.sendError(client, "", errors.Validation("chat_id is required", nil))
		return
	}
	if client.joined(chatID) {
		return
	}

	dispose, err := m.dispatcher.JoinChat(client.Context(), client, chatID)
	if err != nil {
		m.sendError(client, chatID, err)
		return
	}
	client.join(chatID, dispose)
}

func (m *Manager) handleSendMessage(client *Client, wsMessage WSMessage) {
	var data SendMessageData
	if err := json.Unmarshal(wsMessage.Data, &data); err != nil {
		m.sendError(client, wsMessage.ChatID, errors.Validation("Invalid send_message payload", err))
		return
	}

	if err := m.dispatcher.SendText(client.Context(), client, wsMessage.ChatID, data.Text); err != nil {
		logger.LogChatError(wsMessage.ChatID, "ws_send", err)
		m.sendError(client, wsMessage.ChatID, err)
	}
}

// Deliver pushes a frame to this connection without blocking.
func (c *Client) Deliver(msgType, chatID string, data interface{}) {
	frame, err := Encode(msgType, chatID, data)
	if err != nil {
		logger.Error("WebSocket: Failed to encode %s: %v", msgType, err)
		return
	}
	if !c.trySend(frame) {
		logger.Warn("WebSocket: dropping %s for client %s", msgType, c.UserID)
	}
}

// Publish pushes a frame to every connection of the user.
func (m *Manager) Publish(userID, msgType, chatID string, data interface{}) {
	frame, err := Encode(msgType, chatID, data)
	if err != nil {
		logger.Error("WebSocket: Failed to encode %s: %v", msgType, err)
		return
	}
	m.SendToUser(userID, frame)
}

func (m *Manager) sendToClient(client *Client, msgType, chatID string, data interface{}) {
	client.Deliver(msgType, chatID, data)
}

func (m *Manager) sendError(client *Client, chatID string, err error) {
	payload := ErrorData{Code: errors.CodeInternal, Message: err.Error()}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		payload.Code = appErr.Code
		payload.Message = appErr.Message
	}
	m.sendToClient(client, MessageTypeError, chatID, payload)
}
