package chat

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMessageIDPreference(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"messageId wins", `{"id":"a","messageId":"b","_id":"c"}`, "b"},
		{"id next", `{"id":"a","_id":"c"}`, "a"},
		{"_id last", `{"_id":"c"}`, "c"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := NormalizeMessage(json.RawMessage(tc.raw), nil)
			if err != nil {
				t.Fatalf("normalize error: %v", err)
			}
			if msg.ID != tc.want {
				t.Errorf("expected canonical id %q, got %q", tc.want, msg.ID)
			}
		})
	}
}

func TestNormalizeMessageGeneratesID(t *testing.T) {
	msg, err := NormalizeMessage(json.RawMessage(`{"content":"hi"}`), nil)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if !strings.HasPrefix(msg.ID, "msg-") {
		t.Errorf("expected generated id with msg- prefix, got %q", msg.ID)
	}

	other, _ := NormalizeMessage(json.RawMessage(`{"content":"hi"}`), nil)
	if other.ID == msg.ID {
		t.Error("generated ids should not collide")
	}
}

func TestNormalizeMessageTipReclassification(t *testing.T) {
	raw := `{"id":"m1","type":"text","content":"thanks!","tip":{"amount":10,"recipientId":"u2"}}`
	msg, err := NormalizeMessage(json.RawMessage(raw), nil)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if msg.Type != TypeTip {
		t.Errorf("expected type tip, got %q", msg.Type)
	}
	if msg.Tip == nil || msg.Tip.Amount != 10 {
		t.Errorf("expected tip amount 10, got %+v", msg.Tip)
	}
}

func TestNormalizeMessageInvalidTipNotReclassified(t *testing.T) {
	cases := []string{
		`{"id":"m1","type":"text","tip":null}`,
		`{"id":"m1","type":"text","tip":{}}`,
		`{"id":"m1","type":"text","tip":{"recipientId":"u2"}}`,
		`{"id":"m1","type":"text","tip":{"amount":"ten"}}`,
	}
	for _, raw := range cases {
		msg, err := NormalizeMessage(json.RawMessage(raw), nil)
		if err != nil {
			t.Fatalf("normalize error for %s: %v", raw, err)
		}
		if msg.Type != TypeText {
			t.Errorf("%s: expected type text, got %q", raw, msg.Type)
		}
		if msg.Tip != nil {
			t.Errorf("%s: expected no tip, got %+v", raw, msg.Tip)
		}
	}
}

func TestNormalizeMessageSideTip(t *testing.T) {
	msg, err := NormalizeMessage(
		json.RawMessage(`{"id":"m1","type":"text"}`),
		json.RawMessage(`{"amount":5,"recipientName":"Bob"}`),
	)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if msg.Type != TypeTip {
		t.Errorf("expected side tip to reclassify, got %q", msg.Type)
	}
	if msg.Tip == nil || msg.Tip.Amount != 5 {
		t.Errorf("expected side tip amount 5, got %+v", msg.Tip)
	}
}

func TestNormalizeMessageInMessageTipWins(t *testing.T) {
	msg, err := NormalizeMessage(
		json.RawMessage(`{"id":"m1","tip":{"amount":7}}`),
		json.RawMessage(`{"amount":9}`),
	)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if msg.Tip == nil || msg.Tip.Amount != 7 {
		t.Errorf("expected in-message tip to win, got %+v", msg.Tip)
	}
}

func TestNormalizeMessageTimestamps(t *testing.T) {
	ref := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		raw  string
	}{
		{"rfc3339", `{"id":"m1","timestamp":"2025-06-01T12:30:00Z"}`},
		{"millis", `{"id":"m1","timestamp":1748781000000}`},
		{"createdAt fallback", `{"id":"m1","createdAt":"2025-06-01T12:30:00Z"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := NormalizeMessage(json.RawMessage(tc.raw), nil)
			if err != nil {
				t.Fatalf("normalize error: %v", err)
			}
			if !msg.Timestamp.Equal(ref) {
				t.Errorf("expected %v, got %v", ref, msg.Timestamp)
			}
		})
	}
}

func TestNormalizeMessageMissingTimestampDefaultsToNow(t *testing.T) {
	before := time.Now()
	msg, err := NormalizeMessage(json.RawMessage(`{"id":"m1"}`), nil)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if msg.Timestamp.Before(before) || msg.Timestamp.After(time.Now()) {
		t.Errorf("expected timestamp near now, got %v", msg.Timestamp)
	}
}

func TestNormalizeMessageReactionCounts(t *testing.T) {
	raw := `{"id":"m1","reactions":[{"emoji":"🔥","users":["u1","u2","u1"],"count":99}]}`
	msg, err := NormalizeMessage(json.RawMessage(raw), nil)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if len(msg.Reactions) != 1 {
		t.Fatalf("expected 1 reaction, got %d", len(msg.Reactions))
	}
	r := msg.Reactions[0]
	if len(r.Users) != 2 {
		t.Errorf("expected deduped users [u1 u2], got %v", r.Users)
	}
	if r.Count != len(r.Users) {
		t.Errorf("count %d does not match users %d", r.Count, len(r.Users))
	}
}

func TestNormalizeMessageMalformed(t *testing.T) {
	if _, err := NormalizeMessage(json.RawMessage(`"not an object"`), nil); err == nil {
		t.Fatal("expected error for non-object message")
	}
	if _, err := NormalizeMessage(json.RawMessage(`{"id":42}`), nil); err == nil {
		t.Fatal("expected error for wrong field type")
	}
}

func TestNormalizeUser(t *testing.T) {
	u, err := NormalizeUser(json.RawMessage(`{"userId":"u1","username":"alice","role":"moderator","joinedAt":"2025-06-01T12:30:00Z"}`))
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if u.UserID != "u1" || u.Username != "alice" || u.Role != RoleModerator {
		t.Errorf("unexpected user: %+v", u)
	}
	if u.JoinedAt.IsZero() {
		t.Error("expected joinedAt to be parsed")
	}
}

func TestNormalizeUserIDFallback(t *testing.T) {
	u, err := NormalizeUser(json.RawMessage(`{"id":"u9","username":"bob"}`))
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if u.UserID != "u9" {
		t.Errorf("expected id fallback to u9, got %q", u.UserID)
	}
}

func TestNormalizeUserMissingID(t *testing.T) {
	if _, err := NormalizeUser(json.RawMessage(`{"username":"ghost"}`)); err == nil {
		t.Fatal("expected error for user without id")
	}
}
