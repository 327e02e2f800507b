package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
)

type storedChat struct {
	chat    *entity.ChatDocument
	version int64
}

type listWatcher struct {
	member entity.Membership
	known  map[string]int64
	queue  *eventQueue[entity.ChatListSnapshot]
}

// MemoryChatRepository keeps chat documents in process. Every mutation is
// delivered to live listeners in commit order, which makes it the backend of
// choice for tests and the offline development mode.
type MemoryChatRepository struct {
	mu      sync.Mutex
	docs    map[string]*storedChat
	version int64

	docWatchers  map[string]map[*eventQueue[entity.ChatSnapshot]]struct{}
	listWatchers map[*listWatcher]struct{}
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		docs:         make(map[string]*storedChat),
		docWatchers:  make(map[string]map[*eventQueue[entity.ChatSnapshot]]struct{}),
		listWatchers: make(map[*listWatcher]struct{}),
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

// Import stores a raw document under id after running it through the codec,
// exactly as a document read from the backend would be.
func (r *MemoryChatRepository) Import(id string, data map[string]interface{}) error {
	chat, err := DecodeChat(id, data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(chat)
	return nil
}

func (r *MemoryChatRepository) Create(ctx context.Context, chat *entity.ChatDocument) error {
	if err := ctx.Err(); err != nil {
		return errors.Unavailable("Failed to create chat", err)
	}
	chat.ID = uuid.New().String()
	chat.SchemaVersion = entity.SchemaVersion
	if chat.Messages == nil {
		chat.Messages = []entity.Message{}
	}
	if err := ValidateChat(chat); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(chat.Clone())
	return nil
}

func (r *MemoryChatRepository) GetByID(ctx context.Context, id string) (*entity.ChatDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Unavailable("Failed to get chat", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return stored.chat.Clone(), nil
}

func (r *MemoryChatRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.Unavailable("Failed to delete chat", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.docs, id)
	r.publishLocked(id)
	return nil
}

func (r *MemoryChatRepository) MergeMessages(ctx context.Context, id string, messages []entity.Message, lastUpdated int64) error {
	return r.update(ctx, id, true, func(chat *entity.ChatDocument) {
		chat.Messages = append([]entity.Message(nil), messages...)
		chat.LastUpdated = lastUpdated
	})
}

func (r *MemoryChatRepository) AppendMessage(ctx context.Context, id string, msg entity.Message, now time.Time) (*entity.Message, error) {
	err := r.update(ctx, id, false, func(chat *entity.ChatDocument) {
		msg.Seq = int64(len(chat.Messages)) + 1
		chat.Messages = append(chat.Messages, msg)
		chat.LastUpdated = entity.NextLastUpdated(chat.LastUpdated, now)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MemoryChatRepository) MergeUsers(ctx context.Context, id string, users []entity.Membership) error {
	return r.update(ctx, id, true, func(chat *entity.ChatDocument) {
		chat.Users = append([]entity.Membership(nil), users...)
	})
}

// update applies fn to the stored document. A merge write on a missing
// document creates it, as a merge Set does on the real backend.
func (r *MemoryChatRepository) update(ctx context.Context, id string, upsert bool, fn func(chat *entity.ChatDocument)) error {
	if err := ctx.Err(); err != nil {
		return errors.Unavailable("Failed to write chat", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[id]
	if !ok && !upsert {
		return errors.NotFound("Chat", nil)
	}
	chat := &entity.ChatDocument{ID: id, Messages: []entity.Message{}}
	if ok {
		chat = stored.chat.Clone()
	}
	fn(chat)
	chat.SchemaVersion = entity.SchemaVersion
	r.putLocked(chat)
	return nil
}

func (r *MemoryChatRepository) ListByMembership(ctx context.Context, member entity.Membership, directOnly bool) ([]*entity.ChatDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Unavailable("Failed to list chats", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.ChatDocument
	for _, stored := range r.matchingLocked(member) {
		if directOnly && stored.chat.GroupName != "" {
			continue
		}
		out = append(out, stored.chat.Clone())
	}
	return out, nil
}

func (r *MemoryChatRepository) Watch(ctx context.Context, id string) (*repository.Subscription[entity.ChatSnapshot], error) {
	queue := newEventQueue[entity.ChatSnapshot]()

	r.mu.Lock()
	if r.docWatchers[id] == nil {
		r.docWatchers[id] = make(map[*eventQueue[entity.ChatSnapshot]]struct{})
	}
	r.docWatchers[id][queue] = struct{}{}
	queue.push(r.snapshotLocked(id))
	r.mu.Unlock()

	return repository.NewSubscription(ctx, 0, func(ctx context.Context, emit func(entity.ChatSnapshot) bool) error {
		defer func() {
			r.mu.Lock()
			delete(r.docWatchers[id], queue)
			if len(r.docWatchers[id]) == 0 {
				delete(r.docWatchers, id)
			}
			r.mu.Unlock()
		}()
		return queue.run(ctx, emit)
	}), nil
}

func (r *MemoryChatRepository) WatchByMembership(ctx context.Context, member entity.Membership) (*repository.Subscription[entity.ChatListSnapshot], error) {
	w := &listWatcher{
		member: member,
		known:  make(map[string]int64),
		queue:  newEventQueue[entity.ChatListSnapshot](),
	}

	r.mu.Lock()
	r.listWatchers[w] = struct{}{}
	w.queue.push(r.listSnapshotLocked(w))
	r.mu.Unlock()

	return repository.NewSubscription(ctx, 0, func(ctx context.Context, emit func(entity.ChatListSnapshot) bool) error {
		defer func() {
			r.mu.Lock()
			delete(r.listWatchers, w)
			r.mu.Unlock()
		}()
		return w.queue.run(ctx, emit)
	}), nil
}

// ListenerCount reports live listeners, for leak checks in tests.
func (r *MemoryChatRepository) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.listWatchers)
	for _, qs := range r.docWatchers {
		n += len(qs)
	}
	return n
}

func (r *MemoryChatRepository) putLocked(chat *entity.ChatDocument) {
	r.version++
	r.docs[chat.ID] = &storedChat{chat: chat, version: r.version}
	r.publishLocked(chat.ID)
}

func (r *MemoryChatRepository) publishLocked(id string) {
	for queue := range r.docWatchers[id] {
		queue.push(r.snapshotLocked(id))
	}
	for w := range r.listWatchers {
		if snap := r.listSnapshotLocked(w); len(snap.Changes) > 0 {
			w.queue.push(snap)
		}
	}
}

func (r *MemoryChatRepository) snapshotLocked(id string) entity.ChatSnapshot {
	stored, ok := r.docs[id]
	if !ok {
		return entity.ChatSnapshot{ChatID: id}
	}
	return entity.ChatSnapshot{ChatID: id, Exists: true, Chat: stored.chat.Clone()}
}

func (r *MemoryChatRepository) matchingLocked(member entity.Membership) []*storedChat {
	var out []*storedChat
	for _, stored := range r.docs {
		for _, u := range stored.chat.Users {
			if u == member {
				out = append(out, stored)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].chat.LastUpdated != out[j].chat.LastUpdated {
			return out[i].chat.LastUpdated > out[j].chat.LastUpdated
		}
		return out[i].chat.ID < out[j].chat.ID
	})
	return out
}

func (r *MemoryChatRepository) listSnapshotLocked(w *listWatcher) entity.ChatListSnapshot {
	matching := r.matchingLocked(w.member)
	snap := entity.ChatListSnapshot{Chats: make([]*entity.ChatDocument, 0, len(matching))}

	present := make(map[string]struct{}, len(matching))
	for _, stored := range matching {
		chat := stored.chat.Clone()
		snap.Chats = append(snap.Chats, chat)
		present[chat.ID] = struct{}{}

		prev, seen := w.known[chat.ID]
		switch {
		case !seen:
			snap.Changes = append(snap.Changes, entity.ChatChange{Kind: entity.ChangeAdded, Chat: chat})
		case prev != stored.version:
			snap.Changes = append(snap.Changes, entity.ChatChange{Kind: entity.ChangeModified, Chat: chat})
		}
		w.known[chat.ID] = stored.version
	}
	for id := range w.known {
		if _, ok := present[id]; !ok {
			snap.Changes = append(snap.Changes, entity.ChatChange{Kind: entity.ChangeRemoved, Chat: &entity.ChatDocument{ID: id}})
			delete(w.known, id)
		}
	}
	return snap
}

// eventQueue is an unbounded FIFO between a writer holding the repository
// lock and a listener goroutine.
type eventQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func newEventQueue[T any]() *eventQueue[T] {
	return &eventQueue[T]{signal: make(chan struct{}, 1)}
}

func (q *eventQueue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue[T]) run(ctx context.Context, emit func(T) bool) error {
	for {
		q.mu.Lock()
		items := q.items
		q.items = nil
		q.mu.Unlock()

		for _, item := range items {
			if !emit(item) {
				return nil
			}
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil
		}
	}
}
