// Package chat holds the canonical local view of a room session: the
// message, user and room model, the mutable session store, and the
// reducer that folds inbound protocol envelopes into it.
package chat

import "time"

// MessageType classifies a message for rendering.
type MessageType string

const (
	TypeText   MessageType = "text"
	TypeImage  MessageType = "image"
	TypeVideo  MessageType = "video"
	TypeGif    MessageType = "gif"
	TypeSystem MessageType = "system"
	TypeTip    MessageType = "tip"
)

// Role is a user's moderation level.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// MediaItem is one attachment on a message.
type MediaItem struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Type      string `json:"type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

// Reaction is one emoji on a message. Count is derived from Users and
// recomputed on every mutation; it is never stored independently.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// Report is one user's report against a message.
type Report struct {
	UserID     string    `json:"userId"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reportedAt"`
}

// Tip is a confirmed token transfer attached to a message.
type Tip struct {
	Amount        float64 `json:"amount"`
	RecipientID   string  `json:"recipientId,omitempty"`
	RecipientName string  `json:"recipientName,omitempty"`
	SenderID      string  `json:"senderId,omitempty"`
	SenderName    string  `json:"senderName,omitempty"`
	Timestamp     string  `json:"timestamp,omitempty"`
}

// Message is one entry in the room transcript. ID is the canonical
// identifier chosen by Normalize; it is unique within a room session.
type Message struct {
	ID        string      `json:"id"`
	MessageID string      `json:"messageId,omitempty"`
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Avatar    string      `json:"avatar,omitempty"`
	Color     string      `json:"color,omitempty"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Media     []MediaItem `json:"media,omitempty"`
	Reactions []Reaction  `json:"reactions,omitempty"`
	Mentions  []string    `json:"mentions,omitempty"`
	ReplyTo   string      `json:"replyTo,omitempty"`
	IsEdited  bool        `json:"isEdited,omitempty"`
	IsDeleted bool        `json:"isDeleted,omitempty"`
	DeletedAt *time.Time  `json:"deletedAt,omitempty"`
	DeletedBy string      `json:"deletedBy,omitempty"`
	Reports   []Report    `json:"reports,omitempty"`
	Tip       *Tip        `json:"tip,omitempty"`
}

// Matches reports whether id refers to this message under either of
// its wire identifiers.
func (m *Message) Matches(id string) bool {
	if id == "" {
		return false
	}
	return m.ID == id || (m.MessageID != "" && m.MessageID == id)
}

// User is one room participant. Users are unique by UserID; re-adding
// an existing id replaces the prior entry.
type User struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	Color    string    `json:"color,omitempty"`
	Role     Role      `json:"role,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}
