package entity

type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeModified
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	}
	return "unknown"
}

// ChatSnapshot is one emission of a single-document subscription. Chat is nil
// when Exists is false.
type ChatSnapshot struct {
	ChatID string
	Exists bool
	Chat   *ChatDocument
}

type ChatChange struct {
	Kind ChangeKind
	Chat *ChatDocument
}

// ChatListSnapshot always carries the full matching set, sorted by
// LastUpdated descending, plus the changes since the previous emission.
type ChatListSnapshot struct {
	Chats   []*ChatDocument
	Changes []ChatChange
}
