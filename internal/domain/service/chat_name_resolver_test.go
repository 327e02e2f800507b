package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"firechat/internal/domain/entity"
)

func TestDeriveInitialsAvatar(t *testing.T) {
	assert.Equal(t, "PP", DeriveInitialsAvatar("Project Phoenix"))
	assert.Equal(t, "s", DeriveInitialsAvatar("solo"))
	assert.Equal(t, "ÉZ", DeriveInitialsAvatar("  Émile   Zola "))
	assert.Equal(t, "", DeriveInitialsAvatar(""))
}

func TestFormatRelativeDate(t *testing.T) {
	ts := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "3/5/24"},
		{"en-GB", "05/03/24"},
		{"de-DE", "5.3.24"},
		{"ja", "24/3/5"},
		{"not a locale", "3/5/24"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			r := NewChatNameResolver(tt.locale, time.UTC)
			assert.Equal(t, tt.want, r.FormatRelativeDate(ts))
		})
	}
}

func TestLastMessagePreview(t *testing.T) {
	r := NewChatNameResolver("en-US", time.UTC)
	doc := &entity.ChatDocument{}
	assert.Equal(t, NoMessagesLabel, r.LastMessagePreview(doc, "a"))

	doc.Messages = []entity.Message{
		{ID: "m1", Text: "old", User: entity.Sender{ID: "b", Name: "Bob Builder"}},
		{ID: "m2", Text: "hello", User: entity.Sender{ID: "b", Name: "Bob Builder"}},
	}
	assert.Equal(t, "Bob: hello", r.LastMessagePreview(doc, "a"))
	assert.Equal(t, "You: hello", r.LastMessagePreview(doc, "b"))

	doc.Messages = append(doc.Messages, entity.Message{ID: "m3", Image: "https://img", User: entity.Sender{ID: "c"}})
	assert.Equal(t, "c: Photo", r.LastMessagePreview(doc, "a"))
}
