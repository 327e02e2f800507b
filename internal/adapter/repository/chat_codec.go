package repository

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"firechat/internal/domain/entity"
	"firechat/internal/domain/service"
	"firechat/pkg/errors"
)

var validate = newDocumentValidator()

func newDocumentValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateChatShape, entity.ChatDocument{})
	return v
}

// Direct chats carry exactly two memberships; groups need at least one admin.
func validateChatShape(sl validator.StructLevel) {
	doc := sl.Current().Interface().(entity.ChatDocument)
	if doc.GroupName == "" {
		if len(doc.Users) != 2 {
			sl.ReportError(doc.Users, "Users", "users", "directpair", "")
		}
		return
	}
	if len(doc.GroupAdmins) == 0 {
		sl.ReportError(doc.GroupAdmins, "GroupAdmins", "groupAdmins", "required", "")
	}
}

// DecodeChat turns the raw field map of a chat document into the canonical
// shape. Both the plain layout and the legacy layout wrapped in "_data" are
// accepted.
func DecodeChat(id string, data map[string]interface{}) (*entity.ChatDocument, error) {
	if wrapped, ok := data["_data"].(map[string]interface{}); ok {
		data = wrapped
	}

	chat := &entity.ChatDocument{ID: id}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: service.TimestampDecodeHook(),
		Result:     chat,
	})
	if err != nil {
		return nil, errors.Internal("Failed to build chat decoder", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, errors.Validation(fmt.Sprintf("Chat %s has an unexpected shape", id), err)
	}
	chat.ID = id

	rawMessages, _ := data["messages"].([]interface{})
	chat.Messages, err = service.Normalize(rawMessages)
	if err != nil {
		return nil, errors.Validation(fmt.Sprintf("Chat %s has malformed messages", id), err)
	}
	if chat.SchemaVersion == 0 {
		chat.SchemaVersion = 1
	}

	if err := ValidateChat(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func ValidateChat(chat *entity.ChatDocument) error {
	if err := validate.Struct(chat); err != nil {
		return errors.Validation(fmt.Sprintf("Chat %s failed validation", chat.ID), err)
	}
	return nil
}

// encodeChat is the field map written for a whole document.
func encodeChat(chat *entity.ChatDocument) map[string]interface{} {
	messages := chat.Messages
	if messages == nil {
		messages = []entity.Message{}
	}
	admins := chat.GroupAdmins
	if admins == nil {
		admins = []string{}
	}
	return map[string]interface{}{
		"users":         chat.Users,
		"messages":      messages,
		"groupName":     chat.GroupName,
		"groupAdmins":   admins,
		"lastUpdated":   chat.LastUpdated,
		"schemaVersion": entity.SchemaVersion,
	}
}
