package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/repository"
	"firechat/pkg/errors"
)

var (
	alice = entity.Membership{Email: "a@example.com", Name: "Alice"}
	bob   = entity.Membership{Email: "b@example.com", Name: "Bob"}
	carol = entity.Membership{Email: "c@example.com", Name: "Carol"}
)

func next[T any](t *testing.T, sub *repository.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed: %v", sub.Err())
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository()

	chat := &entity.ChatDocument{Users: []entity.Membership{alice, bob}, LastUpdated: 10}
	require.NoError(t, repo.Create(ctx, chat))
	require.NotEmpty(t, chat.ID)

	got, err := repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SchemaVersion, got.SchemaVersion)
	assert.Empty(t, got.Messages)

	got.Users[0].Name = "mutated"
	again, _ := repo.GetByID(ctx, chat.ID)
	assert.Equal(t, "Alice", again.Users[0].Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	err = repo.Create(ctx, &entity.ChatDocument{Users: []entity.Membership{alice}})
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestMemoryAppendAssignsSequence(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository()
	chat := &entity.ChatDocument{Users: []entity.Membership{alice, bob}}
	require.NoError(t, repo.Create(ctx, chat))

	now := time.UnixMilli(1000)
	m1, err := repo.AppendMessage(ctx, chat.ID, entity.Message{ID: "m1"}, now)
	require.NoError(t, err)
	m2, err := repo.AppendMessage(ctx, chat.ID, entity.Message{ID: "m2"}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m1.Seq)
	assert.Equal(t, int64(2), m2.Seq)

	got, _ := repo.GetByID(ctx, chat.ID)
	assert.Equal(t, int64(1001), got.LastUpdated, "lastUpdated keeps increasing with a frozen clock")

	_, err = repo.AppendMessage(ctx, "missing", entity.Message{ID: "m3"}, now)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryWatchDeliversEveryMutation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository()
	chat := &entity.ChatDocument{Users: []entity.Membership{alice, bob}}
	require.NoError(t, repo.Create(ctx, chat))

	sub, err := repo.Watch(ctx, chat.ID)
	require.NoError(t, err)

	initial := next(t, sub)
	assert.True(t, initial.Exists)
	assert.Empty(t, initial.Chat.Messages)

	for _, id := range []string{"m1", "m2", "m3"} {
		_, err := repo.AppendMessage(ctx, chat.ID, entity.Message{ID: id}, time.Now())
		require.NoError(t, err)
	}
	for want := 1; want <= 3; want++ {
		snap := next(t, sub)
		assert.Len(t, snap.Chat.Messages, want)
	}

	require.NoError(t, repo.Delete(ctx, chat.ID))
	gone := next(t, sub)
	assert.False(t, gone.Exists)
	assert.Nil(t, gone.Chat)

	sub.Dispose()
	assert.Equal(t, 0, repo.ListenerCount())
}

func TestMemoryWatchMissingDocument(t *testing.T) {
	repo := NewMemoryChatRepository()
	sub, err := repo.Watch(context.Background(), "nope")
	require.NoError(t, err)
	defer sub.Dispose()

	snap := next(t, sub)
	assert.False(t, snap.Exists)
	assert.Equal(t, "nope", snap.ChatID)
}

func TestMemoryWatchByMembershipChanges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository()

	older := &entity.ChatDocument{Users: []entity.Membership{alice, bob}, LastUpdated: 1}
	newer := &entity.ChatDocument{Users: []entity.Membership{alice, carol}, LastUpdated: 2}
	other := &entity.ChatDocument{Users: []entity.Membership{bob, carol}, LastUpdated: 3}
	for _, c := range []*entity.ChatDocument{older, newer, other} {
		require.NoError(t, repo.Create(ctx, c))
	}

	sub, err := repo.WatchByMembership(ctx, alice)
	require.NoError(t, err)
	defer sub.Dispose()

	initial := next(t, sub)
	require.Len(t, initial.Chats, 2)
	assert.Equal(t, newer.ID, initial.Chats[0].ID, "newest first")
	assert.Len(t, initial.Changes, 2)
	for _, c := range initial.Changes {
		assert.Equal(t, entity.ChangeAdded, c.Kind)
	}

	_, err = repo.AppendMessage(ctx, older.ID, entity.Message{ID: "m1"}, time.UnixMilli(50))
	require.NoError(t, err)
	modified := next(t, sub)
	require.Len(t, modified.Changes, 1)
	assert.Equal(t, entity.ChangeModified, modified.Changes[0].Kind)
	assert.Equal(t, older.ID, modified.Chats[0].ID, "re-sorted after the update")

	_, err = repo.AppendMessage(ctx, other.ID, entity.Message{ID: "m2"}, time.Now())
	require.NoError(t, err)

	left := []entity.Membership{{Email: alice.Email, Name: alice.Name, DeletedFromChat: true}, carol}
	require.NoError(t, repo.MergeUsers(ctx, newer.ID, left))
	removed := next(t, sub)
	require.Len(t, removed.Changes, 1, "changes to foreign chats are not delivered")
	assert.Equal(t, entity.ChangeRemoved, removed.Changes[0].Kind)
	assert.Equal(t, newer.ID, removed.Changes[0].Chat.ID)
	assert.Len(t, removed.Chats, 1)
}

func TestMemoryListByMembershipDirectOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository()

	direct := &entity.ChatDocument{Users: []entity.Membership{alice, bob}}
	group := &entity.ChatDocument{Users: []entity.Membership{alice, bob, carol}, GroupName: "g", GroupAdmins: []string{alice.Email}}
	require.NoError(t, repo.Create(ctx, direct))
	require.NoError(t, repo.Create(ctx, group))

	all, err := repo.ListByMembership(ctx, alice, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyDirect, err := repo.ListByMembership(ctx, alice, true)
	require.NoError(t, err)
	require.Len(t, onlyDirect, 1)
	assert.Equal(t, direct.ID, onlyDirect[0].ID)
}

func TestMemoryImportLegacyDocument(t *testing.T) {
	repo := NewMemoryChatRepository()
	require.NoError(t, repo.Import("legacy", map[string]interface{}{"_data": rawDirectChat()}))

	chat, err := repo.GetByID(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 1)
	assert.Equal(t, 1, chat.SchemaVersion)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	require.NoError(t, repo.Upsert(ctx, &entity.User{Email: "z@example.com", Name: "Zed"}))
	require.NoError(t, repo.Upsert(ctx, &entity.User{Email: "a@example.com", Name: "Alice"}))
	assert.True(t, errors.Is(repo.Upsert(ctx, &entity.User{Name: "nobody"}), errors.CodeValidation))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)

	require.NoError(t, repo.UpdateProfile(ctx, "z@example.com", "Zed Z", "Busy"))
	got, err := repo.GetByID(ctx, "z@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Busy", got.About)

	_, err = repo.GetByIDs(ctx, []string{"a@example.com", "missing"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
