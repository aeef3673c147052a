package chat

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Wire shapes are looser than the canonical model: ids arrive under
// several names, timestamps as strings or epoch millis, and tips either
// inside the message or beside it. Normalize is the single place those
// are reconciled; every ingestion path (HISTORY items and live
// MESSAGE/TIP frames alike) goes through it.

type wireTip struct {
	Amount        *float64 `json:"amount"`
	RecipientID   string   `json:"recipientId"`
	RecipientName string   `json:"recipientName"`
	SenderID      string   `json:"senderId"`
	SenderName    string   `json:"senderName"`
	Timestamp     string   `json:"timestamp"`
}

type wireReport struct {
	UserID     string          `json:"userId"`
	Reason     string          `json:"reason"`
	ReportedAt json.RawMessage `json:"reportedAt"`
}

type wireMessage struct {
	ID        string          `json:"id"`
	MessageID string          `json:"messageId"`
	MongoID   string          `json:"_id"`
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Avatar    string          `json:"avatar"`
	Color     string          `json:"color"`
	Type      string          `json:"type"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
	CreatedAt json.RawMessage `json:"createdAt"`
	Media     []MediaItem     `json:"media"`
	Reactions []Reaction      `json:"reactions"`
	Mentions  []string        `json:"mentions"`
	ReplyTo   string          `json:"replyTo"`
	IsEdited  bool            `json:"isEdited"`
	IsDeleted bool            `json:"isDeleted"`
	DeletedAt json.RawMessage `json:"deletedAt"`
	DeletedBy string          `json:"deletedBy"`
	Reports   []wireReport    `json:"reports"`
	Tip       json.RawMessage `json:"tip"`
}

type wireUser struct {
	UserID   string          `json:"userId"`
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Avatar   string          `json:"avatar"`
	Color    string          `json:"color"`
	Role     string          `json:"role"`
	JoinedAt json.RawMessage `json:"joinedAt"`
}

// NormalizeMessage builds a canonical Message from a raw wire message.
// sideTip, when non-nil, is a tip object that arrived beside the
// message in the payload; the in-message tip wins when both exist.
//
// The canonical id prefers messageId, then id, then _id, and is
// generated when all are absent. A message carrying a well-formed tip
// (non-null with a numeric amount) is classified TypeTip regardless of
// the server-declared type.
func NormalizeMessage(raw json.RawMessage, sideTip json.RawMessage) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}, fmt.Errorf("chat: normalize message: %w", err)
	}

	tip := parseTip(w.Tip)
	if tip == nil {
		tip = parseTip(sideTip)
	}

	id := firstNonEmpty(w.MessageID, w.ID, w.MongoID)
	if id == "" {
		id = generateMessageID()
	}

	msgType := MessageType(w.Type)
	if msgType == "" {
		msgType = TypeText
	}
	if tip != nil {
		msgType = TypeTip
	}

	ts, ok := parseTime(w.Timestamp)
	if !ok {
		if ts, ok = parseTime(w.CreatedAt); !ok {
			ts = time.Now()
		}
	}

	msg := Message{
		ID:        id,
		MessageID: firstNonEmpty(w.MessageID, w.MongoID),
		UserID:    w.UserID,
		Username:  w.Username,
		Avatar:    w.Avatar,
		Color:     w.Color,
		Type:      msgType,
		Content:   w.Content,
		Timestamp: ts,
		Media:     w.Media,
		Reactions: normalizeReactions(w.Reactions),
		Mentions:  w.Mentions,
		ReplyTo:   w.ReplyTo,
		IsEdited:  w.IsEdited,
		IsDeleted: w.IsDeleted,
		DeletedBy: w.DeletedBy,
		Tip:       tip,
	}

	if at, ok := parseTime(w.DeletedAt); ok {
		msg.DeletedAt = &at
	}
	for _, r := range w.Reports {
		rep := Report{UserID: r.UserID, Reason: r.Reason}
		if at, ok := parseTime(r.ReportedAt); ok {
			rep.ReportedAt = at
		}
		msg.Reports = append(msg.Reports, rep)
	}

	return msg, nil
}

// NormalizeUser builds a canonical User from a raw wire user.
func NormalizeUser(raw json.RawMessage) (User, error) {
	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return User{}, fmt.Errorf("chat: normalize user: %w", err)
	}

	id := firstNonEmpty(w.UserID, w.ID)
	if id == "" {
		return User{}, fmt.Errorf("chat: normalize user: missing userId")
	}

	u := User{
		UserID:   id,
		Username: w.Username,
		Avatar:   w.Avatar,
		Color:    w.Color,
		Role:     Role(w.Role),
	}
	if at, ok := parseTime(w.JoinedAt); ok {
		u.JoinedAt = at
	} else {
		u.JoinedAt = time.Now()
	}
	return u, nil
}

// NormalizeReports parses a wholesale reports list from a
// MESSAGE_REPORTED payload.
func NormalizeReports(raw json.RawMessage) []Report {
	var wire []wireReport
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	reports := make([]Report, 0, len(wire))
	for _, r := range wire {
		rep := Report{UserID: r.UserID, Reason: r.Reason}
		if at, ok := parseTime(r.ReportedAt); ok {
			rep.ReportedAt = at
		}
		reports = append(reports, rep)
	}
	return reports
}

// parseTip returns a Tip only for a well-formed tip object: non-null
// JSON with a numeric amount. Anything else is treated as no tip.
func parseTip(raw json.RawMessage) *Tip {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var w wireTip
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil
	}
	if w.Amount == nil {
		return nil
	}
	return &Tip{
		Amount:        *w.Amount,
		RecipientID:   w.RecipientID,
		RecipientName: w.RecipientName,
		SenderID:      w.SenderID,
		SenderName:    w.SenderName,
		Timestamp:     w.Timestamp,
	}
}

// normalizeReactions dedupes each reaction's user list and recomputes
// the derived count so it can never drift from the wire value.
func normalizeReactions(reactions []Reaction) []Reaction {
	if reactions == nil {
		return nil
	}
	out := make([]Reaction, 0, len(reactions))
	for _, r := range reactions {
		seen := make(map[string]struct{}, len(r.Users))
		users := make([]string, 0, len(r.Users))
		for _, u := range r.Users {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			users = append(users, u)
		}
		out = append(out, Reaction{Emoji: r.Emoji, Users: users, Count: len(users)})
	}
	return out
}

// parseTime accepts RFC 3339 strings and epoch numbers (millis or
// seconds), the two formats the service is known to emit.
func parseTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		// Values above 1e12 can only be milliseconds.
		if n > 1e12 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return time.UnixMilli(int64(f)), true
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func generateMessageID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "msg-" + hex.EncodeToString(b)
}
