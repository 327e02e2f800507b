package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"

	"firechat/internal/domain/entity"
)

const NoMessagesLabel = "No messages yet"

// Short numeric date layouts with a two-digit year, per supported locale. The
// first entry is the fallback.
var dateLocales = []struct {
	tag    language.Tag
	layout string
}{
	{language.AmericanEnglish, "1/2/06"},
	{language.BritishEnglish, "02/01/06"},
	{language.German, "2.1.06"},
	{language.French, "02/01/06"},
	{language.Spanish, "2/1/06"},
	{language.Italian, "2/1/06"},
	{language.Dutch, "2-1-06"},
	{language.Russian, "02.01.06"},
	{language.BrazilianPortuguese, "02/01/06"},
	{language.Japanese, "06/1/2"},
	{language.Chinese, "06/1/2"},
	{language.Korean, "06. 1. 2."},
	{language.Indonesian, "2/1/06"},
}

var dateMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(dateLocales))
	for i, l := range dateLocales {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// ChatNameResolver derives presentation labels for chat list rows.
type ChatNameResolver struct {
	layout   string
	location *time.Location
}

// NewChatNameResolver picks the date layout closest to locale (a BCP 47 tag
// such as "en-GB"). A nil location means time.Local.
func NewChatNameResolver(locale string, location *time.Location) *ChatNameResolver {
	if location == nil {
		location = time.Local
	}
	tag, _ := language.Parse(locale)
	_, idx, _ := dateMatcher.Match(tag)
	return &ChatNameResolver{
		layout:   dateLocales[idx].layout,
		location: location,
	}
}

// DeriveInitialsAvatar concatenates the first character of each
// whitespace-separated word, keeping its case.
func DeriveInitialsAvatar(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(r)
	}
	return b.String()
}

func (r *ChatNameResolver) FormatRelativeDate(timestampMs int64) string {
	return time.UnixMilli(timestampMs).In(r.location).Format(r.layout)
}

// LastMessagePreview renders the chat list subtitle for viewer.
func (r *ChatNameResolver) LastMessagePreview(doc *entity.ChatDocument, viewer string) string {
	if doc == nil {
		return NoMessagesLabel
	}
	msg, ok := Latest(doc.Messages)
	if !ok {
		return NoMessagesLabel
	}

	author := "You"
	if msg.User.ID != viewer {
		author = firstWord(msg.User.Name)
		if author == "" {
			author = msg.User.ID
		}
	}
	text := msg.Text
	if text == "" && msg.Image != "" {
		text = "Photo"
	}
	return author + ": " + text
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
