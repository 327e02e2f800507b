package entity

import "time"

type Sender struct {
	ID   string `json:"id" firestore:"_id" mapstructure:"_id" validate:"required"`
	Name string `json:"name" firestore:"name" mapstructure:"name"`
}

// Message is an entry of ChatDocument.Messages. Received is carried for
// compatibility and never set by this client.
type Message struct {
	ID        string    `json:"id" firestore:"_id" mapstructure:"_id" validate:"required"`
	Text      string    `json:"text" firestore:"text" mapstructure:"text"`
	Image     string    `json:"image" firestore:"image" mapstructure:"image"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" mapstructure:"createdAt" validate:"required"`
	User      Sender    `json:"user" firestore:"user" mapstructure:"user"`
	Sent      bool      `json:"sent" firestore:"sent" mapstructure:"sent"`
	Received  bool      `json:"received" firestore:"received" mapstructure:"received"`
	Seq       int64     `json:"seq,omitempty" firestore:"seq,omitempty" mapstructure:"seq"`
}
