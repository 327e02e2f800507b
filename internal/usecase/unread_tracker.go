package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
	"firechat/pkg/logger"
)

// UnreadStorageKey is the local store key holding the serialized counters.
const UnreadStorageKey = "newMessages"

// UnreadTracker keeps per-chat unread counts for this install. The full
// mapping is written to the local store after every mutation; the lock is held
// across the write so two mutations never interleave their blobs.
type UnreadTracker struct {
	store repository.LocalStore

	mu     sync.Mutex
	counts map[string]int

	listenersMu sync.Mutex
	listeners   map[int]func(total int)
	nextID      int
}

// NewUnreadTracker loads the persisted mapping once. A missing key starts
// empty; an unreadable blob is logged and discarded.
func NewUnreadTracker(ctx context.Context, store repository.LocalStore) (*UnreadTracker, error) {
	t := &UnreadTracker{
		store:     store,
		counts:    make(map[string]int),
		listeners: make(map[int]func(int)),
	}

	raw, ok, err := store.Get(ctx, UnreadStorageKey)
	if err != nil {
		return nil, errors.Unavailable("Failed to load unread counters", err)
	}
	if !ok || len(raw) == 0 {
		return t, nil
	}

	var loaded map[string]int
	if err := json.Unmarshal(raw, &loaded); err != nil {
		logger.Warn("Discarding unreadable unread counters: %v", err)
		return t, nil
	}
	for chatID, n := range loaded {
		if n < 0 {
			n = 0
		}
		t.counts[chatID] = n
	}
	return t, nil
}

// OnDocumentChanged counts latest as unread unless the viewer sent it.
func (t *UnreadTracker) OnDocumentChanged(ctx context.Context, chatID string, latest entity.Message, viewer string) error {
	if latest.User.ID == viewer {
		return nil
	}
	return t.mutate(ctx, func(counts map[string]int) {
		counts[chatID]++
	})
}

// OnChatOpened resets the chat's counter to zero.
func (t *UnreadTracker) OnChatOpened(ctx context.Context, chatID string) error {
	return t.mutate(ctx, func(counts map[string]int) {
		counts[chatID] = 0
	})
}

// Forget drops the counter of a chat that no longer exists.
func (t *UnreadTracker) Forget(ctx context.Context, chatID string) error {
	t.mu.Lock()
	_, ok := t.counts[chatID]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return t.mutate(ctx, func(counts map[string]int) {
		delete(counts, chatID)
	})
}

func (t *UnreadTracker) Count(chatID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[chatID]
}

func (t *UnreadTracker) TotalUnread() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

// Counts returns a copy of the mapping.
func (t *UnreadTracker) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// OnTotalChanged registers fn to receive the total after every mutation.
// The returned func unregisters it.
func (t *UnreadTracker) OnTotalChanged(fn func(total int)) func() {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	return func() {
		t.listenersMu.Lock()
		defer t.listenersMu.Unlock()
		delete(t.listeners, id)
	}
}

// mutate applies fn and persists the result. When persisting fails the
// in-memory state is kept and the error is returned.
func (t *UnreadTracker) mutate(ctx context.Context, fn func(counts map[string]int)) error {
	t.mu.Lock()
	fn(t.counts)
	total := t.totalLocked()
	err := t.persistLocked(ctx)
	t.mu.Unlock()

	t.notify(total)
	return err
}

func (t *UnreadTracker) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(t.counts)
	if err != nil {
		return errors.Internal("Failed to encode unread counters", err)
	}
	if err := t.store.Put(ctx, UnreadStorageKey, raw); err != nil {
		logger.Error("Failed to persist unread counters: %v", err)
		return errors.Unavailable("Failed to persist unread counters", err)
	}
	return nil
}

func (t *UnreadTracker) totalLocked() int {
	total := 0
	for _, n := range t.counts {
		total += n
	}
	return total
}

func (t *UnreadTracker) notify(total int) {
	t.listenersMu.Lock()
	fns := make([]func(int), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.listenersMu.Unlock()

	for _, fn := range fns {
		fn(total)
	}
}
