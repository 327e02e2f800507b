package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firechat/internal/adapter/repository"
	"firechat/internal/domain/entity"
	"firechat/internal/infrastructure/firebase"
	"firechat/pkg/errors"
)

func newSessionManager() (*SessionManager, *DirectoryUseCase) {
	directory := NewDirectoryUseCase(repository.NewMemoryUserRepository())
	return NewSessionManager(firebase.NewLocalIdentity(), directory), directory
}

func nextSession(t *testing.T, ch <-chan *entity.Session) *entity.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session change")
		return nil
	}
}

func TestIdentifierFor(t *testing.T) {
	assert.Equal(t, "alice@example.com", IdentifierFor("  Alice "))
	assert.Equal(t, "bob@corp.io", IdentifierFor("Bob@Corp.io"))
	assert.Equal(t, "", IdentifierFor("   "))
}

func TestSignUpWritesDirectoryEntry(t *testing.T) {
	ctx := context.Background()
	manager, directory := newSessionManager()

	_, err := manager.SignUp(ctx, SignUpInput{Identifier: "alice", Secret: "secret1"})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	session, err := manager.SignUp(ctx, SignUpInput{Identifier: "alice", Secret: "secret1", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.Same(t, session, manager.Current())

	user, err := directory.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, entity.DefaultAbout, user.About)
	assert.Equal(t, session.UID, user.UID)
}

func TestSignOutRunsTeardownsNewestFirst(t *testing.T) {
	ctx := context.Background()
	manager, _ := newSessionManager()
	_, err := manager.SignUp(ctx, SignUpInput{Identifier: "alice", Secret: "secret1", DisplayName: "Alice"})
	require.NoError(t, err)

	var order []string
	manager.OnTeardown(func() { order = append(order, "watcher") })
	manager.OnTeardown(func() { order = append(order, "hub") })

	manager.SignOut()
	manager.SignOut()
	assert.Equal(t, []string{"hub", "watcher"}, order)
	assert.Nil(t, manager.Current())

	_, err = manager.Require()
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	ran := false
	manager.OnTeardown(func() { ran = true })
	assert.True(t, ran)
}

func TestExpiredSessionRequiresSignIn(t *testing.T) {
	ctx := context.Background()
	manager, _ := newSessionManager()
	session, err := manager.SignUp(ctx, SignUpInput{Identifier: "alice", Secret: "secret1", DisplayName: "Alice"})
	require.NoError(t, err)
	require.False(t, session.ExpiresAt.IsZero())

	got, err := manager.Require()
	require.NoError(t, err)
	assert.Same(t, session, got)

	manager.now = func() time.Time { return session.ExpiresAt.Add(time.Second) }
	_, err = manager.Require()
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	_, err = manager.UpdateProfile(ctx, "Alicia", "")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	manager.now = time.Now
	_, err = manager.SignIn(ctx, "alice", "secret1")
	require.NoError(t, err)
	_, err = manager.Require()
	assert.NoError(t, err)
}

func TestSignInReplacesSession(t *testing.T) {
	ctx := context.Background()
	manager, _ := newSessionManager()
	_, err := manager.SignUp(ctx, SignUpInput{Identifier: "alice", Secret: "secret1", DisplayName: "Alice"})
	require.NoError(t, err)

	tornDown := false
	manager.OnTeardown(func() { tornDown = true })

	_, err = manager.SignIn(ctx, "alice", "wrong-pass")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	assert.False(t, tornDown)

	session, err := manager.SignIn(ctx, "ALICE", "secret1")
	require.NoError(t, err)
	assert.True(t, tornDown)
	assert.Equal(t, "Alice", session.DisplayName)
}

func TestOnSessionChangedStreamsLifecycle(t *testing.T) {
	ctx := context.Background()
	manager, directory := newSessionManager()

	sub := manager.OnSessionChanged(ctx)
	defer sub.Dispose()
	assert.Nil(t, nextSession(t, sub.Updates()))

	_, err := manager.SignUp(ctx, SignUpInput{Identifier: "alice", Secret: "secret1", DisplayName: "Alice"})
	require.NoError(t, err)
	signedIn := nextSession(t, sub.Updates())
	require.NotNil(t, signedIn)
	assert.Equal(t, "alice@example.com", signedIn.Email)

	updated, err := manager.UpdateProfile(ctx, "Alice Liddell", "")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.DisplayName)
	renamed := nextSession(t, sub.Updates())
	require.NotNil(t, renamed)
	assert.Equal(t, "Alice Liddell", renamed.DisplayName)

	user, err := directory.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.Name)
	assert.Equal(t, entity.DefaultAbout, user.About)

	manager.SignOut()
	assert.Nil(t, nextSession(t, sub.Updates()))
}
