package entity

import "time"

const DefaultAbout = "Available"

// User is a directory entry in the "users" collection, keyed by Email (the
// identifier: a real or synthesized email, or a phone number).
type User struct {
	UID   string `json:"uid" firestore:"id"`
	Email string `json:"email" firestore:"email" validate:"required"`
	Name  string `json:"name" firestore:"name"`
	About string `json:"about" firestore:"about"`
}

// Membership returns the active membership triple used for array-contains lookups.
func (u *User) Membership() Membership {
	return Membership{Email: u.Email, Name: u.Name}
}

// Session is the signed-in identity. It is owned by the session manager and
// passed explicitly to whoever needs it. ID tokens are not refreshed: once
// ExpiresAt passes the user signs in again.
type Session struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IDToken     string    `json:"id_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the ID token is past its expiry. A zero ExpiresAt
// never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s *Session) Membership() Membership {
	return Membership{Email: s.Email, Name: s.DisplayName}
}

func (s *Session) Sender() Sender {
	return Sender{ID: s.Email, Name: s.DisplayName}
}
