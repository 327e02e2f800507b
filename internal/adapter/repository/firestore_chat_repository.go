package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
)

const chatsCollection = "chats"

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(chatsCollection).Doc(id)
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.ChatDocument) error {
	ref := r.client.Collection(chatsCollection).NewDoc()
	chat.ID = ref.ID
	chat.SchemaVersion = entity.SchemaVersion
	if chat.Messages == nil {
		chat.Messages = []entity.Message{}
	}
	if err := ValidateChat(chat); err != nil {
		return err
	}

	if _, err := ref.Create(ctx, encodeChat(chat)); err != nil {
		return errors.FromBackend("Failed to create chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.ChatDocument, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.FromBackend("Failed to get chat", err)
	}
	return DecodeChat(snap.Ref.ID, snap.Data())
}

func (r *firestoreChatRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.doc(id).Delete(ctx); err != nil {
		return errors.FromBackend("Failed to delete chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) MergeMessages(ctx context.Context, id string, messages []entity.Message, lastUpdated int64) error {
	_, err := r.doc(id).Set(ctx, map[string]interface{}{
		"messages":      messages,
		"lastUpdated":   lastUpdated,
		"schemaVersion": entity.SchemaVersion,
	}, firestore.MergeAll)
	if err != nil {
		return errors.FromBackend("Failed to write messages", err)
	}
	return nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, id string, msg entity.Message, now time.Time) (*entity.Message, error) {
	ref := r.doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		chat, err := DecodeChat(ref.ID, snap.Data())
		if err != nil {
			return err
		}

		msg.Seq = int64(len(chat.Messages)) + 1
		return tx.Set(ref, map[string]interface{}{
			"messages":      append(chat.Messages, msg),
			"lastUpdated":   entity.NextLastUpdated(chat.LastUpdated, now),
			"schemaVersion": entity.SchemaVersion,
		}, firestore.MergeAll)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.FromBackend("Failed to append message", err)
	}
	return &msg, nil
}

func (r *firestoreChatRepository) MergeUsers(ctx context.Context, id string, users []entity.Membership) error {
	_, err := r.doc(id).Set(ctx, map[string]interface{}{
		"users": users,
	}, firestore.MergeAll)
	if err != nil {
		return errors.FromBackend("Failed to update chat members", err)
	}
	return nil
}

func (r *firestoreChatRepository) membershipQuery(member entity.Membership, directOnly bool) firestore.Query {
	query := r.client.Collection(chatsCollection).
		Where("users", "array-contains", map[string]interface{}{
			"email":           member.Email,
			"name":            member.Name,
			"deletedFromChat": member.DeletedFromChat,
		})
	if directOnly {
		query = query.Where("groupName", "==", "")
	}
	return query.OrderBy("lastUpdated", firestore.Desc)
}

func (r *firestoreChatRepository) ListByMembership(ctx context.Context, member entity.Membership, directOnly bool) ([]*entity.ChatDocument, error) {
	docs, err := r.membershipQuery(member, directOnly).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.FromBackend("Failed to list chats", err)
	}

	chats := make([]*entity.ChatDocument, 0, len(docs))
	for _, d := range docs {
		chat, err := DecodeChat(d.Ref.ID, d.Data())
		if err != nil {
			logger.Warn("Skipping chat %s: %v", d.Ref.ID, err)
			continue
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *firestoreChatRepository) Watch(ctx context.Context, id string) (*repository.Subscription[entity.ChatSnapshot], error) {
	ref := r.doc(id)
	return repository.NewSubscription(ctx, 1, func(ctx context.Context, emit func(entity.ChatSnapshot) bool) error {
		iter := ref.Snapshots(ctx)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				logger.LogChatError(id, "watch", err)
				return errors.FromBackend("Chat listener failed", err)
			}

			update := entity.ChatSnapshot{ChatID: id, Exists: snap.Exists()}
			if update.Exists {
				chat, err := DecodeChat(id, snap.Data())
				if err != nil {
					logger.LogChatError(id, "decode", err)
					continue
				}
				update.Chat = chat
			}
			if !emit(update) {
				return nil
			}
		}
	}), nil
}

func (r *firestoreChatRepository) WatchByMembership(ctx context.Context, member entity.Membership) (*repository.Subscription[entity.ChatListSnapshot], error) {
	query := r.membershipQuery(member, false)
	return repository.NewSubscription(ctx, 1, func(ctx context.Context, emit func(entity.ChatListSnapshot) bool) error {
		iter := query.Snapshots(ctx)
		defer iter.Stop()

		for {
			qs, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				logger.Error("Chat list listener for %s failed: %v", member.Email, err)
				return errors.FromBackend("Chat list listener failed", err)
			}

			docs, err := qs.Documents.GetAll()
			if err != nil {
				return errors.FromBackend("Failed to read chat list snapshot", err)
			}

			update := entity.ChatListSnapshot{Chats: make([]*entity.ChatDocument, 0, len(docs))}
			decoded := make(map[string]*entity.ChatDocument, len(docs))
			for _, d := range docs {
				chat, err := DecodeChat(d.Ref.ID, d.Data())
				if err != nil {
					logger.LogChatError(d.Ref.ID, "decode", err)
					continue
				}
				decoded[chat.ID] = chat
				update.Chats = append(update.Chats, chat)
			}

			for _, change := range qs.Changes {
				id := change.Doc.Ref.ID
				c := entity.ChatChange{Chat: decoded[id]}
				switch change.Kind {
				case firestore.DocumentAdded:
					c.Kind = entity.ChangeAdded
				case firestore.DocumentModified:
					c.Kind = entity.ChangeModified
				case firestore.DocumentRemoved:
					c.Kind = entity.ChangeRemoved
					c.Chat = &entity.ChatDocument{ID: id}
				}
				if c.Chat == nil {
					continue
				}
				update.Changes = append(update.Changes, c)
			}

			if !emit(update) {
				return nil
			}
		}
	}), nil
}
