package service

import (
	"firechat/internal/domain/entity"
)

// NoNameLabel is shown when a chat has no usable name or identifier.
const NoNameLabel = "~ No Name or Email ~"

func IsGroupChat(doc *entity.ChatDocument) bool {
	return doc != nil && doc.GroupName != ""
}

// ActiveMembers de-duplicates memberships by identifier, keeping the first entry.
func ActiveMembers(users []entity.Membership) []entity.Membership {
	seen := make(map[string]struct{}, len(users))
	out := make([]entity.Membership, 0, len(users))
	for _, u := range users {
		if _, ok := seen[u.Email]; ok {
			continue
		}
		seen[u.Email] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ResolveDisplayName labels a chat for viewer: the group name for groups,
// otherwise the other participant's name, then identifier, then NoNameLabel.
// A chat with oneself is labelled with the viewer's own name.
func ResolveDisplayName(doc *entity.ChatDocument, viewer string) string {
	if doc == nil {
		return NoNameLabel
	}
	if IsGroupChat(doc) {
		return doc.GroupName
	}

	var self *entity.Membership
	for i := range doc.Users {
		u := doc.Users[i]
		if u.Email == viewer || (u.Email == "" && u.Name == viewer) {
			if self == nil {
				self = &doc.Users[i]
			}
			continue
		}
		if u.Name != "" {
			return u.Name
		}
		if u.Email != "" {
			return u.Email
		}
	}

	if self != nil && len(doc.Users) > 1 {
		if self.Name != "" {
			return self.Name + "*(You)"
		}
		if self.Email != "" {
			return self.Email
		}
	}
	return NoNameLabel
}

// MarkDeleted returns a copy of memberships with every entry for user flagged
// as deleted. Other entries are left untouched.
func MarkDeleted(users []entity.Membership, user string) []entity.Membership {
	out := make([]entity.Membership, len(users))
	for i, u := range users {
		if u.Email == user {
			u.DeletedFromChat = true
		}
		out[i] = u
	}
	return out
}

// AllDeleted reports whether every membership has left the chat. An empty
// list counts as all deleted.
func AllDeleted(users []entity.Membership) bool {
	for _, u := range users {
		if !u.DeletedFromChat {
			return false
		}
	}
	return true
}

func IsMember(doc *entity.ChatDocument, user string) bool {
	if doc == nil {
		return false
	}
	for _, u := range doc.Users {
		if u.Email == user && !u.DeletedFromChat {
			return true
		}
	}
	return false
}

// Admin returns the first group admin, or "" for direct chats.
func Admin(doc *entity.ChatDocument) string {
	if !IsGroupChat(doc) || len(doc.GroupAdmins) == 0 {
		return ""
	}
	return doc.GroupAdmins[0]
}

// IsSelfChat reports a direct chat whose memberships all belong to user.
func IsSelfChat(doc *entity.ChatDocument, user string) bool {
	if doc == nil || IsGroupChat(doc) || len(doc.Users) == 0 {
		return false
	}
	for _, u := range doc.Users {
		if u.Email != user {
			return false
		}
	}
	return true
}

// HasParticipant reports whether a direct chat includes other besides viewer.
func HasParticipant(doc *entity.ChatDocument, viewer, other string) bool {
	if doc == nil {
		return false
	}
	if viewer == other {
		return IsSelfChat(doc, viewer)
	}
	var hasViewer, hasOther bool
	for _, u := range doc.Users {
		switch u.Email {
		case viewer:
			hasViewer = true
		case other:
			hasOther = true
		}
	}
	return hasViewer && hasOther
}
