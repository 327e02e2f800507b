package entity

import "time"

// SchemaVersion is written on every chat document this client saves. Documents
// without the field are treated as version 1.
const SchemaVersion = 2

type Membership struct {
	Email           string `json:"email" firestore:"email" mapstructure:"email" validate:"required"`
	Name            string `json:"name" firestore:"name" mapstructure:"name"`
	DeletedFromChat bool   `json:"deleted_from_chat" firestore:"deletedFromChat" mapstructure:"deletedFromChat"`
}

// ChatDocument is the single shared record of a conversation. Users is not a
// set; consumers de-duplicate by Email.
type ChatDocument struct {
	ID            string       `json:"id" firestore:"-" mapstructure:"-"`
	Users         []Membership `json:"users" firestore:"users" mapstructure:"users" validate:"required,min=1,dive"`
	Messages      []Message    `json:"messages" firestore:"messages" mapstructure:"-" validate:"dive"`
	GroupName     string       `json:"group_name" firestore:"groupName" mapstructure:"groupName"`
	GroupAdmins   []string     `json:"group_admins,omitempty" firestore:"groupAdmins,omitempty" mapstructure:"groupAdmins"`
	LastUpdated   int64        `json:"last_updated" firestore:"lastUpdated" mapstructure:"lastUpdated"`
	SchemaVersion int          `json:"schema_version" firestore:"schemaVersion" mapstructure:"schemaVersion"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c *ChatDocument) Clone() *ChatDocument {
	if c == nil {
		return nil
	}
	out := *c
	out.Users = append([]Membership(nil), c.Users...)
	out.Messages = append([]Message(nil), c.Messages...)
	out.GroupAdmins = append([]string(nil), c.GroupAdmins...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return &out
}

// NextLastUpdated keeps lastUpdated strictly increasing even when the local
// wall clock is behind the value another client wrote.
func NextLastUpdated(prev int64, now time.Time) int64 {
	ms := now.UnixMilli()
	if ms <= prev {
		return prev + 1
	}
	return ms
}
