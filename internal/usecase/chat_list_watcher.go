package usecase

import (
	"context"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/service"
	ws "firechat/internal/infrastructure/websocket"
	"firechat/pkg/logger"
)

type UnreadTotal struct {
	Total int `json:"total"`
}

// ChatListWatcher follows the viewer's chat list, feeds unread counts from
// modified chats and pushes the list to the viewer's live connections.
type ChatListWatcher struct {
	store     *ChatStore
	tracker   *UnreadTracker
	resolver  *service.ChatNameResolver
	publisher Publisher
}

func NewChatListWatcher(store *ChatStore, tracker *UnreadTracker, resolver *service.ChatNameResolver, publisher Publisher) *ChatListWatcher {
	return &ChatListWatcher{
		store:     store,
		tracker:   tracker,
		resolver:  resolver,
		publisher: publisher,
	}
}

// Run blocks until ctx is done or the subscription fails. The first emission
// is the baseline: chats already present are not counted as unread.
func (w *ChatListWatcher) Run(ctx context.Context, session *entity.Session) error {
	sub, err := w.store.SubscribeToChatList(ctx, session.Membership())
	if err != nil {
		return err
	}
	defer sub.Dispose()

	viewer := session.Email
	latestSeen := make(map[string]string)
	baseline := true

	for snapshot := range sub.Updates() {
		if baseline {
			for _, chat := range snapshot.Chats {
				if msg, ok := service.Latest(chat.Messages); ok {
					latestSeen[chat.ID] = msg.ID
				}
			}
			baseline = false
		} else {
			w.apply(ctx, snapshot.Changes, viewer, latestSeen)
		}

		if w.publisher != nil {
			w.publisher.Publish(session.UID, ws.MessageTypeChatList, "", Summarize(snapshot.Chats, viewer, w.resolver, w.tracker))
			w.publisher.Publish(session.UID, ws.MessageTypeUnreadTotal, "", UnreadTotal{Total: w.tracker.TotalUnread()})
		}
	}

	if err := sub.Err(); err != nil {
		logger.Error("Chat list subscription for %s ended: %v", viewer, err)
		return err
	}
	return nil
}

// apply counts a modified chat once per new latest message; a writer's own
// echo and repeated snapshots of the same message are ignored.
func (w *ChatListWatcher) apply(ctx context.Context, changes []entity.ChatChange, viewer string, latestSeen map[string]string) {
	for _, change := range changes {
		chatID := change.Chat.ID
		switch change.Kind {
		case entity.ChangeRemoved:
			delete(latestSeen, chatID)
			if err := w.tracker.Forget(ctx, chatID); err != nil {
				logger.LogChatError(chatID, "forget_unread", err)
			}

		case entity.ChangeAdded:
			if msg, ok := service.Latest(change.Chat.Messages); ok {
				latestSeen[chatID] = msg.ID
			}

		case entity.ChangeModified:
			msg, ok := service.Latest(change.Chat.Messages)
			if !ok || latestSeen[chatID] == msg.ID {
				continue
			}
			latestSeen[chatID] = msg.ID
			if err := w.tracker.OnDocumentChanged(ctx, chatID, msg, viewer); err != nil {
				logger.LogChatError(chatID, "count_unread", err)
			}
		}
	}
}

// Follow runs the watcher for whichever session is current, restarting it when
// the session or its membership triple changes, until ctx is done.
func (w *ChatListWatcher) Follow(ctx context.Context, sessions *SessionManager) {
	changes := sessions.OnSessionChanged(ctx)
	defer changes.Dispose()

	var (
		running entity.Membership
		uid     string
		stop    context.CancelFunc
		done    chan struct{}
	)
	halt := func() {
		if stop != nil {
			stop()
			<-done
			stop = nil
		}
	}
	defer halt()

	for session := range changes.Updates() {
		if session != nil && stop != nil && session.UID == uid && session.Membership() == running {
			continue
		}
		halt()
		if session == nil {
			continue
		}

		runCtx, cancel := context.WithCancel(ctx)
		stop, done = cancel, make(chan struct{})
		uid, running = session.UID, session.Membership()
		sessions.OnTeardown(cancel)

		go func(session *entity.Session, done chan struct{}) {
			defer close(done)
			if err := w.Run(runCtx, session); err != nil {
				logger.Error("Chat list watcher for %s stopped: %v", session.Email, err)
			}
		}(session, done)
	}
}
