package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firechat/internal/adapter/repository"
	"firechat/internal/domain/entity"
	"firechat/pkg/errors"
)

func TestDirectoryListsAndResolvesMembers(t *testing.T) {
	ctx := context.Background()
	directory := NewDirectoryUseCase(repository.NewMemoryUserRepository())
	for _, m := range []entity.Membership{carol, alice, bob} {
		_, err := directory.Register(ctx, sessionFor(m), m.Name)
		require.NoError(t, err)
	}

	users, err := directory.ListUsers(ctx, alice.Email)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[0].Name)
	assert.Equal(t, "Carol", users[1].Name)

	members, err := directory.Memberships(ctx, []string{bob.Email, carol.Email})
	require.NoError(t, err)
	assert.Equal(t, []entity.Membership{bob, carol}, members)

	_, err = directory.Memberships(ctx, []string{"nobody@example.com"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestDirectoryUpdateProfile(t *testing.T) {
	ctx := context.Background()
	directory := NewDirectoryUseCase(repository.NewMemoryUserRepository())
	_, err := directory.Register(ctx, sessionFor(bob), "Bob")
	require.NoError(t, err)

	assert.True(t, errors.Is(directory.UpdateProfile(ctx, bob.Email, " ", "busy"), errors.CodeValidation))
	require.NoError(t, directory.UpdateProfile(ctx, bob.Email, "Robert", "Busy"))

	user, err := directory.GetUser(ctx, bob.Email)
	require.NoError(t, err)
	assert.Equal(t, "Robert", user.Name)
	assert.Equal(t, "Busy", user.About)

	assert.True(t, errors.Is(directory.UpdateProfile(ctx, "nobody@example.com", "X", ""), errors.CodeNotFound))
}
