package service

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"firechat/internal/domain/entity"
)

// Normalize converts the raw messages array of a chat document into typed
// messages. Absent images become "" and timestamps become time.Time.
func Normalize(raw []interface{}) ([]entity.Message, error) {
	out := make([]entity.Message, 0, len(raw))
	for i, item := range raw {
		fields, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("message %d: expected object, got %T", i, item)
		}

		var msg entity.Message
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: TimestampDecodeHook(),
			Result:     &msg,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(fields); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if msg.User.ID == "" {
			// Older writers kept the sender id at the top level.
			if id, ok := fields["senderId"].(string); ok {
				msg.User.ID = id
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// Append returns existing with incoming added at the end. existing is never
// modified and no de-duplication is performed.
func Append(existing []entity.Message, incoming entity.Message) []entity.Message {
	out := make([]entity.Message, 0, len(existing)+1)
	out = append(out, existing...)
	return append(out, incoming)
}

// Latest returns the most recent message, which is the last one stored.
func Latest(messages []entity.Message) (entity.Message, bool) {
	if len(messages) == 0 {
		return entity.Message{}, false
	}
	return messages[len(messages)-1], true
}

// DisplayOrder returns a newest-first copy.
func DisplayOrder(messages []entity.Message) []entity.Message {
	out := make([]entity.Message, len(messages))
	for i, m := range messages {
		out[len(messages)-1-i] = m
	}
	return out
}
