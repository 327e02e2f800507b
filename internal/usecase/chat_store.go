package usecase

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/internal/domain/service"
	"firechat/internal/infrastructure/ratelimit"
	"firechat/pkg/config"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
)

const actionSendMessage = "send_message"

// ChatStore owns reads, writes and subscriptions against chat documents.
type ChatStore struct {
	chatRepo    repository.ChatRepository
	images      ImageStore
	rateLimiter *ratelimit.RateLimiter
	appendMode  string
	now         func() time.Time
}

func NewChatStore(
	chatRepo repository.ChatRepository,
	images ImageStore,
	rateLimiter *ratelimit.RateLimiter,
	appendMode string,
) *ChatStore {
	if appendMode != config.AppendModeReadModifyWrite {
		appendMode = config.AppendModeAtomic
	}
	return &ChatStore{
		chatRepo:    chatRepo,
		images:      images,
		rateLimiter: rateLimiter,
		appendMode:  appendMode,
		now:         time.Now,
	}
}

func (s *ChatStore) AppendMode() string {
	return s.appendMode
}

// SubscribeToChat delivers the current state of the chat followed by every
// committed change. The caller must Dispose the subscription.
func (s *ChatStore) SubscribeToChat(ctx context.Context, chatID string) (*repository.Subscription[entity.ChatSnapshot], error) {
	if chatID == "" {
		return nil, errors.Validation("Chat ID is required", nil)
	}
	return s.chatRepo.Watch(ctx, chatID)
}

// SubscribeToChatList watches every chat whose users contain member exactly,
// newest first.
func (s *ChatStore) SubscribeToChatList(ctx context.Context, member entity.Membership) (*repository.Subscription[entity.ChatListSnapshot], error) {
	if member.Email == "" {
		return nil, errors.Validation("Member identifier is required", nil)
	}
	return s.chatRepo.WatchByMembership(ctx, member)
}

func (s *ChatStore) GetChat(ctx context.Context, chatID string) (*entity.ChatDocument, error) {
	if chatID == "" {
		return nil, errors.Validation("Chat ID is required", nil)
	}
	return s.chatRepo.GetByID(ctx, chatID)
}

func (s *ChatStore) ListChats(ctx context.Context, member entity.Membership) ([]*entity.ChatDocument, error) {
	return s.chatRepo.ListByMembership(ctx, member, false)
}

// AppendMessage adds msg to the end of the chat's log with sent=true and
// received=false. In read-modify-write mode the whole messages field is
// rewritten from the value just read, so overlapping appends lose one of the
// writes. Atomic mode appends inside a backend transaction.
func (s *ChatStore) AppendMessage(ctx context.Context, chatID string, msg entity.Message) (*entity.Message, error) {
	now := s.now()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.Sent = true
	msg.Received = false

	if s.appendMode == config.AppendModeAtomic {
		saved, err := s.chatRepo.AppendMessage(ctx, chatID, msg, now)
		if err != nil {
			logger.LogChatError(chatID, "append_message", err)
			return nil, err
		}
		return saved, nil
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		logger.LogChatError(chatID, "append_message_read", err)
		return nil, err
	}
	messages := service.Append(chat.Messages, msg)
	if err := s.chatRepo.MergeMessages(ctx, chatID, messages, entity.NextLastUpdated(chat.LastUpdated, now)); err != nil {
		logger.LogChatError(chatID, "append_message_write", err)
		return nil, err
	}
	return &msg, nil
}

// SendText validates and rate limits a text message from the session user.
func (s *ChatStore) SendText(ctx context.Context, session *entity.Session, chatID, text string) (*entity.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Validation("Message text is required", nil)
	}
	if err := s.requireMember(ctx, session, chatID); err != nil {
		return nil, err
	}
	if err := s.allowSend(session); err != nil {
		return nil, err
	}

	return s.AppendMessage(ctx, chatID, entity.Message{
		Text: text,
		User: session.Sender(),
	})
}

// SendImage uploads the attachment and appends a message referencing it.
func (s *ChatStore) SendImage(ctx context.Context, session *entity.Session, chatID string, file io.Reader, contentType string) (*entity.Message, error) {
	if s.images == nil {
		return nil, errors.Unavailable("Image storage is not configured", nil)
	}
	if chatID == "" {
		return nil, errors.Validation("Chat ID is required", nil)
	}
	if err := s.requireMember(ctx, session, chatID); err != nil {
		return nil, err
	}
	if err := s.allowSend(session); err != nil {
		return nil, err
	}

	url, err := s.images.UploadImage(ctx, chatID, file, contentType)
	if err != nil {
		logger.LogChatError(chatID, "upload_image", err)
		return nil, err
	}

	return s.AppendMessage(ctx, chatID, entity.Message{
		Image: url,
		User:  session.Sender(),
	})
}

// requireMember rejects senders who are not in the chat or have left it.
func (s *ChatStore) requireMember(ctx context.Context, session *entity.Session, chatID string) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !service.IsMember(chat, session.Email) {
		logger.Warn("Send rejected: %s is not a member of chat %s", session.Email, chatID)
		return errors.PermissionDenied("Not a member of this chat", nil)
	}
	return nil
}

func (s *ChatStore) allowSend(session *entity.Session) error {
	if s.rateLimiter == nil {
		return nil
	}
	allowed, wait := s.rateLimiter.Allow(session.UID, actionSendMessage)
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", session.UID, wait)
		return errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
	}
	return nil
}

// UpdateMembership writes users back to the chat, or deletes the chat when
// every member has left. The returned flag reports a deletion.
func (s *ChatStore) UpdateMembership(ctx context.Context, chatID string, users []entity.Membership) (bool, error) {
	if service.AllDeleted(users) {
		var attachments []string
		if s.images != nil {
			if chat, err := s.chatRepo.GetByID(ctx, chatID); err == nil {
				for _, msg := range chat.Messages {
					if msg.Image != "" {
						attachments = append(attachments, msg.Image)
					}
				}
			}
		}

		if err := s.chatRepo.Delete(ctx, chatID); err != nil {
			logger.LogChatError(chatID, "delete_chat", err)
			return false, err
		}
		logger.Info("Chat %s deleted: every member has left", chatID)

		// Attachments are best effort once the document is gone.
		for _, url := range attachments {
			if err := s.images.DeleteImage(ctx, url); err != nil {
				logger.LogChatError(chatID, "delete_image", err)
			}
		}
		return true, nil
	}

	if err := s.chatRepo.MergeUsers(ctx, chatID, users); err != nil {
		logger.LogChatError(chatID, "update_membership", err)
		return false, err
	}
	return false, nil
}

// LeaveChat soft-deletes the viewer's membership.
func (s *ChatStore) LeaveChat(ctx context.Context, chatID, viewer string) (bool, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return false, err
	}
	if !service.IsMember(chat, viewer) {
		return false, errors.PermissionDenied("Not a member of this chat", nil)
	}
	return s.UpdateMembership(ctx, chatID, service.MarkDeleted(chat.Users, viewer))
}

// CreateChat allocates a new chat with an empty message log.
func (s *ChatStore) CreateChat(ctx context.Context, users []entity.Membership, groupName string, admins []string) (*entity.ChatDocument, error) {
	if len(users) == 0 {
		return nil, errors.Validation("A chat needs at least one member", nil)
	}

	chat := &entity.ChatDocument{
		Users:       users,
		Messages:    []entity.Message{},
		GroupName:   groupName,
		GroupAdmins: admins,
		LastUpdated: s.now().UnixMilli(),
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		logger.Error("Failed to create chat: %v", err)
		return nil, err
	}
	logger.Info("Chat created: %s (group=%t, members=%d)", chat.ID, groupName != "", len(users))
	return chat, nil
}

// FindOrCreateDirectChat reuses the viewer's direct chat with other when one
// exists. A chat with oneself holds the viewer twice.
func (s *ChatStore) FindOrCreateDirectChat(ctx context.Context, viewer, other entity.Membership) (*entity.ChatDocument, error) {
	if other.Email == "" {
		return nil, errors.Validation("Recipient is required", nil)
	}

	chats, err := s.chatRepo.ListByMembership(ctx, viewer, true)
	if err != nil {
		return nil, err
	}
	for _, chat := range chats {
		if service.HasParticipant(chat, viewer.Email, other.Email) {
			return chat, nil
		}
	}

	viewer.DeletedFromChat = false
	other.DeletedFromChat = false
	return s.CreateChat(ctx, []entity.Membership{viewer, other}, "", nil)
}

// CreateGroupChat creates a named group. The creator is the first member and
// the only admin.
func (s *ChatStore) CreateGroupChat(ctx context.Context, creator entity.Membership, members []entity.Membership, name string) (*entity.ChatDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("Group name is required", nil)
	}

	creator.DeletedFromChat = false
	users := []entity.Membership{creator}
	for _, m := range members {
		if m.Email == "" || m.Email == creator.Email {
			continue
		}
		m.DeletedFromChat = false
		users = append(users, m)
	}
	users = service.ActiveMembers(users)

	return s.CreateChat(ctx, users, name, []string{creator.Email})
}
