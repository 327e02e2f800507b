package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"firechat/internal/domain/entity"
)

func directChat(users ...entity.Membership) *entity.ChatDocument {
	return &entity.ChatDocument{ID: "c1", Users: users}
}

func TestResolveDisplayNameDirect(t *testing.T) {
	doc := directChat(
		entity.Membership{Email: "a", Name: "Alice"},
		entity.Membership{Email: "b", Name: "Bob"},
	)
	assert.Equal(t, "Bob", ResolveDisplayName(doc, "a"))
	assert.Equal(t, "Alice", ResolveDisplayName(doc, "b"))
}

func TestResolveDisplayNameFallbacks(t *testing.T) {
	noName := directChat(
		entity.Membership{Email: "a", Name: "Alice"},
		entity.Membership{Email: "b@example.com"},
	)
	assert.Equal(t, "b@example.com", ResolveDisplayName(noName, "a"))

	nothing := directChat(entity.Membership{Email: "a", Name: "Alice"}, entity.Membership{})
	assert.Equal(t, NoNameLabel, ResolveDisplayName(nothing, "a"))

	self := directChat(
		entity.Membership{Email: "a", Name: "Alice"},
		entity.Membership{Email: "a", Name: "Alice"},
	)
	assert.Equal(t, "Alice*(You)", ResolveDisplayName(self, "a"))

	assert.Equal(t, NoNameLabel, ResolveDisplayName(nil, "a"))
}

func TestResolveDisplayNameGroup(t *testing.T) {
	doc := directChat(entity.Membership{Email: "a", Name: "Alice"})
	doc.GroupName = "Project Phoenix"
	assert.True(t, IsGroupChat(doc))
	assert.Equal(t, "Project Phoenix", ResolveDisplayName(doc, "a"))
}

func TestAllDeleted(t *testing.T) {
	assert.True(t, AllDeleted([]entity.Membership{{DeletedFromChat: true}, {DeletedFromChat: true}}))
	assert.False(t, AllDeleted([]entity.Membership{{DeletedFromChat: true}, {DeletedFromChat: false}}))
}

func TestMarkDeleted(t *testing.T) {
	users := []entity.Membership{
		{Email: "a", Name: "Alice"},
		{Email: "b", Name: "Bob"},
	}
	updated := MarkDeleted(users, "a")

	assert.True(t, updated[0].DeletedFromChat)
	assert.False(t, updated[1].DeletedFromChat)
	assert.False(t, users[0].DeletedFromChat, "input must not be modified")
	assert.False(t, AllDeleted(updated))
	assert.True(t, AllDeleted(MarkDeleted(updated, "b")))
}

func TestActiveMembersDeduplicates(t *testing.T) {
	users := []entity.Membership{
		{Email: "a", Name: "Alice"},
		{Email: "b", Name: "Bob"},
		{Email: "a", Name: "Alice Again"},
	}
	got := ActiveMembers(users)
	assert.Equal(t, []entity.Membership{{Email: "a", Name: "Alice"}, {Email: "b", Name: "Bob"}}, got)
}

func TestAdminAndParticipants(t *testing.T) {
	group := &entity.ChatDocument{
		Users:       []entity.Membership{{Email: "a"}, {Email: "b"}},
		GroupName:   "g",
		GroupAdmins: []string{"a"},
	}
	assert.Equal(t, "a", Admin(group))

	direct := directChat(entity.Membership{Email: "a"}, entity.Membership{Email: "b"})
	assert.Equal(t, "", Admin(direct))
	assert.True(t, HasParticipant(direct, "a", "b"))
	assert.False(t, HasParticipant(direct, "a", "a"))
	assert.False(t, IsSelfChat(direct, "a"))

	self := directChat(entity.Membership{Email: "a"}, entity.Membership{Email: "a"})
	assert.True(t, HasParticipant(self, "a", "a"))
	assert.True(t, IsMember(self, "a"))
}
