package repository

import (
	"context"
	"time"

	"firechat/internal/domain/entity"
)

// ChatRepository is the document-level view of the "chats" collection.
type ChatRepository interface {
	// Create allocates a document id, stores chat and sets chat.ID.
	Create(ctx context.Context, chat *entity.ChatDocument) error
	GetByID(ctx context.Context, id string) (*entity.ChatDocument, error)
	Delete(ctx context.Context, id string) error

	// MergeMessages overwrites the messages field and lastUpdated, leaving other
	// fields untouched. It performs no concurrency check.
	MergeMessages(ctx context.Context, id string, messages []entity.Message, lastUpdated int64) error
	// AppendMessage appends msg inside a backend transaction, assigning its Seq.
	AppendMessage(ctx context.Context, id string, msg entity.Message, now time.Time) (*entity.Message, error)
	// MergeUsers overwrites the users field, leaving other fields untouched.
	MergeUsers(ctx context.Context, id string, users []entity.Membership) error

	// ListByMembership returns the chats whose users contain member exactly,
	// newest first. directOnly restricts the result to chats without a group name.
	ListByMembership(ctx context.Context, member entity.Membership, directOnly bool) ([]*entity.ChatDocument, error)

	Watch(ctx context.Context, id string) (*Subscription[entity.ChatSnapshot], error)
	WatchByMembership(ctx context.Context, member entity.Membership) (*Subscription[entity.ChatListSnapshot], error)
}
