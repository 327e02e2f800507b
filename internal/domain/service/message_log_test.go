package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firechat/internal/domain/entity"
)

func TestNormalizeFillsMissingImage(t *testing.T) {
	created := time.Date(2024, 3, 5, 10, 30, 0, 123456789, time.UTC)
	raw := []interface{}{
		map[string]interface{}{
			"_id":       "m1",
			"text":      "hi",
			"createdAt": created,
			"user":      map[string]interface{}{"_id": "a@example.com", "name": "Alice", "avatar": "x"},
			"sent":      true,
			"received":  false,
		},
	}

	msgs, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "", msgs[0].Image)
	assert.True(t, msgs[0].CreatedAt.Equal(created))
	assert.Equal(t, 123456789, msgs[0].CreatedAt.Nanosecond())
	assert.Equal(t, entity.Sender{ID: "a@example.com", Name: "Alice"}, msgs[0].User)
	assert.True(t, msgs[0].Sent)
}

func TestNormalizeTimestampForms(t *testing.T) {
	want := time.Date(2024, 3, 5, 10, 30, 0, 250_000_000, time.UTC)
	forms := map[string]interface{}{
		"millis int":    want.UnixMilli(),
		"millis float":  float64(want.UnixMilli()),
		"millis string": "1709634600250",
		"rfc3339":       want.Format(time.RFC3339Nano),
		"seconds map":   map[string]interface{}{"seconds": want.Unix(), "nanoseconds": int64(want.Nanosecond())},
		"underscored":   map[string]interface{}{"_seconds": float64(want.Unix()), "_nanoseconds": float64(want.Nanosecond())},
	}

	for name, form := range forms {
		t.Run(name, func(t *testing.T) {
			msgs, err := Normalize([]interface{}{
				map[string]interface{}{"_id": "m", "createdAt": form, "image": nil},
			})
			require.NoError(t, err)
			assert.True(t, msgs[0].CreatedAt.Equal(want), "got %v", msgs[0].CreatedAt)
			assert.Equal(t, "", msgs[0].Image)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]interface{}{"not a message"})
	assert.Error(t, err)

	_, err = Normalize([]interface{}{map[string]interface{}{"_id": "m", "createdAt": "yesterday"}})
	assert.Error(t, err)
}

func TestAppendNeverMutatesExisting(t *testing.T) {
	existing := make([]entity.Message, 2, 8)
	existing[0].ID = "m1"
	existing[1].ID = "m2"

	a := Append(existing, entity.Message{ID: "m3"})
	b := Append(existing, entity.Message{ID: "m4"})

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(a))
	assert.Equal(t, []string{"m1", "m2", "m4"}, ids(b))
	assert.Len(t, existing, 2)
}

func TestAppendKeepsDuplicates(t *testing.T) {
	msgs := Append(nil, entity.Message{ID: "m1"})
	msgs = Append(msgs, entity.Message{ID: "m1"})
	assert.Len(t, msgs, 2)
}

func TestLatestAndDisplayOrder(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	msgs := []entity.Message{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}
	latest, ok := Latest(msgs)
	require.True(t, ok)
	assert.Equal(t, "m3", latest.ID)
	assert.Equal(t, []string{"m3", "m2", "m1"}, ids(DisplayOrder(msgs)))
	assert.Equal(t, "m1", msgs[0].ID)
}

func ids(msgs []entity.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
