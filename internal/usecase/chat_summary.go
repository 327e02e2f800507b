package usecase

import (
	"firechat/internal/domain/entity"
	"firechat/internal/domain/service"
)

// ChatSummary is one row of the chat list as the viewer sees it.
type ChatSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Avatar      string              `json:"avatar"`
	Preview     string              `json:"preview"`
	Date        string              `json:"date"`
	LastUpdated int64               `json:"last_updated"`
	Unread      int                 `json:"unread"`
	IsGroup     bool                `json:"is_group"`
	Admin       string              `json:"admin,omitempty"`
	Members     []entity.Membership `json:"members"`
}

// Summarize builds list rows in the order given. tracker may be nil.
func Summarize(chats []*entity.ChatDocument, viewer string, resolver *service.ChatNameResolver, tracker *UnreadTracker) []ChatSummary {
	out := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		name := service.ResolveDisplayName(chat, viewer)
		row := ChatSummary{
			ID:          chat.ID,
			Name:        name,
			Avatar:      service.DeriveInitialsAvatar(name),
			Preview:     resolver.LastMessagePreview(chat, viewer),
			Date:        resolver.FormatRelativeDate(chat.LastUpdated),
			LastUpdated: chat.LastUpdated,
			IsGroup:     service.IsGroupChat(chat),
			Admin:       service.Admin(chat),
			Members:     service.ActiveMembers(chat.Users),
		}
		if tracker != nil {
			row.Unread = tracker.Count(chat.ID)
		}
		out = append(out, row)
	}
	return out
}

// ChatView is an open chat as the viewer sees it, messages newest first.
type ChatView struct {
	ID       string              `json:"id"`
	Exists   bool                `json:"exists"`
	Name     string              `json:"name"`
	IsGroup  bool                `json:"is_group"`
	Admin    string              `json:"admin,omitempty"`
	Members  []entity.Membership `json:"members"`
	Messages []entity.Message    `json:"messages"`
}

func ViewChat(chatID string, chat *entity.ChatDocument, viewer string) ChatView {
	if chat == nil {
		return ChatView{ID: chatID, Messages: []entity.Message{}}
	}
	return ChatView{
		ID:       chat.ID,
		Exists:   true,
		Name:     service.ResolveDisplayName(chat, viewer),
		IsGroup:  service.IsGroupChat(chat),
		Admin:    service.Admin(chat),
		Members:  service.ActiveMembers(chat.Users),
		Messages: service.DisplayOrder(chat.Messages),
	}
}
