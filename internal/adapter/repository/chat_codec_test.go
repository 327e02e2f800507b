package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firechat/internal/domain/entity"
	"firechat/pkg/errors"
)

func rawDirectChat() map[string]interface{} {
	return map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"email": "a@example.com", "name": "Alice", "deletedFromChat": false},
			map[string]interface{}{"email": "b@example.com", "name": "Bob", "deletedFromChat": false},
		},
		"messages": []interface{}{
			map[string]interface{}{
				"_id":       "m1",
				"text":      "hi",
				"createdAt": time.UnixMilli(1709634600250),
				"user":      map[string]interface{}{"_id": "a@example.com", "name": "Alice"},
				"sent":      true,
				"received":  false,
			},
		},
		"groupName":   "",
		"lastUpdated": int64(1709634600250),
	}
}

func TestDecodeChatPlainLayout(t *testing.T) {
	chat, err := DecodeChat("c1", rawDirectChat())
	require.NoError(t, err)

	assert.Equal(t, "c1", chat.ID)
	assert.Len(t, chat.Users, 2)
	assert.Equal(t, "Bob", chat.Users[1].Name)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "", chat.Messages[0].Image)
	assert.Equal(t, int64(1709634600250), chat.LastUpdated)
	assert.Equal(t, 1, chat.SchemaVersion, "documents without a version are version 1")
}

func TestDecodeChatWrappedLayout(t *testing.T) {
	raw := rawDirectChat()
	raw["lastUpdated"] = "1709634600250"
	raw["schemaVersion"] = int64(2)

	chat, err := DecodeChat("c1", map[string]interface{}{"_data": raw})
	require.NoError(t, err)
	assert.Equal(t, int64(1709634600250), chat.LastUpdated)
	assert.Equal(t, 2, chat.SchemaVersion)
	assert.Equal(t, "a@example.com", chat.Messages[0].User.ID)
}

func TestDecodeChatValidatesShape(t *testing.T) {
	raw := rawDirectChat()
	raw["users"] = []interface{}{
		map[string]interface{}{"email": "a@example.com", "name": "Alice"},
	}
	_, err := DecodeChat("c1", raw)
	assert.True(t, errors.Is(err, errors.CodeValidation), "direct chat with one member: %v", err)

	group := rawDirectChat()
	group["groupName"] = "Team"
	_, err = DecodeChat("c2", group)
	assert.True(t, errors.Is(err, errors.CodeValidation), "group without admins: %v", err)

	group["groupAdmins"] = []interface{}{"a@example.com"}
	chat, err := DecodeChat("c2", group)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, chat.GroupAdmins)

	missingID := rawDirectChat()
	missingID["messages"] = []interface{}{map[string]interface{}{"text": "no id", "createdAt": int64(1)}}
	_, err = DecodeChat("c3", missingID)
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestEncodeChatWritesEmptyArrays(t *testing.T) {
	fields := encodeChat(&entity.ChatDocument{Users: []entity.Membership{{Email: "a"}}})
	assert.Equal(t, []entity.Message{}, fields["messages"])
	assert.Equal(t, []string{}, fields["groupAdmins"])
	assert.Equal(t, entity.SchemaVersion, fields["schemaVersion"])
}
