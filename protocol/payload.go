package protocol

import "encoding/json"

// ConnectPayload carries the session identity. It is sent exactly once
// per connection, immediately after the transport opens.
type ConnectPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
	Role     string `json:"role,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Color    string `json:"color,omitempty"`
}

// HistoryPayload is the room snapshot the server sends after CONNECT.
// Messages and users are kept raw; normalization happens at ingestion.
type HistoryPayload struct {
	Messages []json.RawMessage `json:"messages"`
	Users    []json.RawMessage `json:"users"`
}

// MessagePayload wraps a live chat or tip message. Some server builds
// put the tip object beside the message instead of inside it.
type MessagePayload struct {
	Message json.RawMessage `json:"message"`
	Tip     json.RawMessage `json:"tip,omitempty"`
}

// SendMessagePayload is the outbound shape for MESSAGE.
type SendMessagePayload struct {
	Content string      `json:"content"`
	Media   interface{} `json:"media,omitempty"`
}

// TypingPayload is used in both directions. Outbound frames omit the
// user id; the server stamps it before fanning out.
type TypingPayload struct {
	UserID   string `json:"userId,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// UserPayload wraps a presence event.
type UserPayload struct {
	User json.RawMessage `json:"user"`
}

// ReactionPayload is the inbound REACTION fan-out and, without UserID
// and Action, the outbound REACTION_ADD / REACTION_REMOVE shape.
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId,omitempty"`
	Action    string `json:"action,omitempty"`
}

// ReportPayload is the outbound MESSAGE_REPORT shape.
type ReportPayload struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}

// ReportedPayload is the inbound MESSAGE_REPORTED fan-out; the reports
// list replaces the local one wholesale.
type ReportedPayload struct {
	MessageID string          `json:"messageId"`
	Reports   json.RawMessage `json:"reports"`
}

// DeletePayload is used in both directions for MESSAGE_DELETE.
type DeletePayload struct {
	MessageID string `json:"messageId"`
	DeletedBy string `json:"deletedBy,omitempty"`
	DeletedAt string `json:"deletedAt,omitempty"`
}

// BanPayload is the outbound USER_BAN shape. The field name follows
// the server contract.
type BanPayload struct {
	UserIDToBan string `json:"userIdToBan"`
	RoomID      string `json:"roomId"`
}

// TipPayload is the outbound TIP shape, broadcast only after the
// wallet gateway has confirmed the payment (or immediately when no
// gateway is configured).
type TipPayload struct {
	Amount        float64 `json:"amount"`
	RecipientID   string  `json:"recipientId"`
	RecipientName string  `json:"recipientName"`
	Message       string  `json:"message,omitempty"`
}

// ErrorPayload carries a server-side error string.
type ErrorPayload struct {
	Error string `json:"error"`
}
