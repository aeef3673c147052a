package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/younivision/livechat-go/chat"
	"github.com/younivision/livechat-go/protocol"
	"github.com/younivision/livechat-go/wallet"
)

// fakeGateway scripts wallet responses for the tip flow.
type fakeGateway struct {
	mu         sync.Mutex
	tokens     int
	tipCalls   []wallet.TipRequest
	tipTokens  []string
	tipErrs    []error
	balance    float64
	balanceErr error
}

func (g *fakeGateway) BearerToken(ctx context.Context, userID, roomID, username string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens++
	return fmt.Sprintf("tok-%d", g.tokens), nil
}

func (g *fakeGateway) SendTip(ctx context.Context, token string, tip wallet.TipRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tipCalls = append(g.tipCalls, tip)
	g.tipTokens = append(g.tipTokens, token)
	if len(g.tipErrs) > 0 {
		err := g.tipErrs[0]
		g.tipErrs = g.tipErrs[1:]
		return err
	}
	return nil
}

func (g *fakeGateway) Balance(ctx context.Context, token, userID string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, g.balanceErr
}

func connectedClient(t *testing.T, s *chatServer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHeartbeatInterval(time.Hour)}, opts...)
	c := New(s.URL(), testIdentity(), opts...)
	t.Cleanup(c.Disconnect)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect error: %v", err)
	}
	s.waitFrame(t, protocol.TypeConnect)
	return c
}

func TestSendMessageFrame(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s)

	if err := c.SendMessage("hello room"); err != nil {
		t.Fatalf("send error: %v", err)
	}

	env := s.waitFrame(t, protocol.TypeMessage)
	var p protocol.SendMessagePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Content != "hello room" {
		t.Errorf("expected content preserved, got %q", p.Content)
	}
}

func TestSendMessageSlowMode(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s, WithSlowMode(2, time.Hour))

	if err := c.SendMessage("one"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.SendMessage("two"); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if err := c.SendMessage("three"); err != ErrSlowMode {
		t.Fatalf("expected ErrSlowMode, got %v", err)
	}

	s.waitFrame(t, protocol.TypeMessage)
	s.waitFrame(t, protocol.TypeMessage)
	s.expectNoFrame(t, 150*time.Millisecond)
}

func TestTypingFrames(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s)

	c.SendTyping(true)
	env := s.waitFrame(t, protocol.TypeTyping)
	var p protocol.TypingPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !p.IsTyping {
		t.Error("expected isTyping true")
	}
	if p.UserID != "" {
		t.Errorf("outbound typing must omit userId, got %q", p.UserID)
	}

	c.SendTyping(false)
	env = s.waitFrame(t, protocol.TypeTyping)
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.IsTyping {
		t.Error("expected isTyping false")
	}
}

func TestReactionFrames(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s)

	c.AddReaction("m1", "🔥")
	env := s.waitFrame(t, protocol.TypeReactionAdd)
	var p protocol.ReactionPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.MessageID != "m1" || p.Emoji != "🔥" {
		t.Errorf("unexpected reaction payload: %+v", p)
	}

	c.RemoveReaction("m1", "🔥")
	s.waitFrame(t, protocol.TypeReactionRemove)
}

func TestModerationFrames(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s)

	c.ReportMessage("m1", "spam")
	env := s.waitFrame(t, protocol.TypeMessageReport)
	var report protocol.ReportPayload
	if err := json.Unmarshal(env.Payload, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.MessageID != "m1" || report.Reason != "spam" {
		t.Errorf("unexpected report payload: %+v", report)
	}

	c.DeleteMessage("m1")
	s.waitFrame(t, protocol.TypeMessageDelete)

	c.BanUser("u9")
	env = s.waitFrame(t, protocol.TypeUserBan)
	var raw map[string]any
	if err := json.Unmarshal(env.Payload, &raw); err != nil {
		t.Fatalf("unmarshal ban: %v", err)
	}
	if raw["userIdToBan"] != "u9" {
		t.Errorf("expected userIdToBan field, got %v", raw)
	}
	if raw["roomId"] != "lobby" {
		t.Errorf("expected current room, got %v", raw["roomId"])
	}
}

func TestSendTipSuccess(t *testing.T) {
	s := newChatServer(t)
	gw := &fakeGateway{balance: 90}
	c := connectedClient(t, s, WithGateway(gw))

	err := c.SendTip(context.Background(), 10, "u2", "Bob")
	if err != nil {
		t.Fatalf("tip error: %v", err)
	}

	gw.mu.Lock()
	if len(gw.tipCalls) != 1 {
		t.Fatalf("expected 1 gateway tip, got %d", len(gw.tipCalls))
	}
	tip := gw.tipCalls[0]
	gw.mu.Unlock()
	if tip.RecipientID != "u2" || tip.Amount != 10 || tip.RoomID != "lobby" {
		t.Errorf("unexpected tip request: %+v", tip)
	}

	env := s.waitFrame(t, protocol.TypeTip)
	var p protocol.TipPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal tip payload: %v", err)
	}
	if p.Amount != 10 || p.RecipientID != "u2" {
		t.Errorf("unexpected tip frame: %+v", p)
	}

	if c.Balance() != 90 {
		t.Errorf("expected balance refreshed to 90, got %v", c.Balance())
	}
}

func TestSendTipGatewayFailureSuppressesFrame(t *testing.T) {
	s := newChatServer(t)
	gw := &fakeGateway{tipErrs: []error{fmt.Errorf("insufficient funds")}}
	c := connectedClient(t, s, WithGateway(gw))

	if err := c.SendTip(context.Background(), 10, "u2", "Bob"); err == nil {
		t.Fatal("expected tip error")
	}
	s.expectNoFrame(t, 150*time.Millisecond)
}

func TestSendTipRetriesOnceOnUnauthorized(t *testing.T) {
	s := newChatServer(t)
	gw := &fakeGateway{tipErrs: []error{wallet.ErrUnauthorized}}
	c := connectedClient(t, s, WithGateway(gw))

	if err := c.SendTip(context.Background(), 5, "u2", "Bob"); err != nil {
		t.Fatalf("tip error: %v", err)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.tipCalls) != 2 {
		t.Fatalf("expected retry after 401, got %d calls", len(gw.tipCalls))
	}
	if gw.tipTokens[0] == gw.tipTokens[1] {
		t.Errorf("retry must use a fresh token, got %q twice", gw.tipTokens[0])
	}
	if gw.tokens != 2 {
		t.Errorf("expected 2 token fetches, got %d", gw.tokens)
	}

	s.waitFrame(t, protocol.TypeTip)
}

func TestSendTipUnauthorizedTwiceFails(t *testing.T) {
	s := newChatServer(t)
	gw := &fakeGateway{tipErrs: []error{wallet.ErrUnauthorized, wallet.ErrUnauthorized}}
	c := connectedClient(t, s, WithGateway(gw))

	if err := c.SendTip(context.Background(), 5, "u2", "Bob"); err == nil {
		t.Fatal("expected error when retry also fails")
	}
	s.expectNoFrame(t, 150*time.Millisecond)
}

func TestSendTipDefaultRecipient(t *testing.T) {
	s := newChatServer(t)
	gw := &fakeGateway{}
	c := connectedClient(t, s, WithGateway(gw))

	c.Store().UpsertUser(chat.User{UserID: "u2", Username: "bob"})

	if err := c.SendTip(context.Background(), 5, "", ""); err != nil {
		t.Fatalf("tip error: %v", err)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.tipCalls[0].RecipientID != "u2" || gw.tipCalls[0].RecipientName != "bob" {
		t.Errorf("expected roster fallback recipient, got %+v", gw.tipCalls[0])
	}
}

func TestSendTipNoRecipient(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s, WithGateway(&fakeGateway{}))

	if err := c.SendTip(context.Background(), 5, "", ""); err == nil {
		t.Fatal("expected error with empty roster and no recipient")
	}
}

func TestSendTipRejectsNonPositiveAmount(t *testing.T) {
	c := New("ws://127.0.0.1:1", testIdentity())

	if err := c.SendTip(context.Background(), 0, "u2", "Bob"); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if err := c.SendTip(context.Background(), -3, "u2", "Bob"); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestSendTipWithoutGateway(t *testing.T) {
	s := newChatServer(t)
	c := connectedClient(t, s)

	if err := c.SendTip(context.Background(), 5, "u2", "Bob"); err != nil {
		t.Fatalf("tip error: %v", err)
	}
	s.waitFrame(t, protocol.TypeTip)
}

func TestRefreshBalanceRequiresGateway(t *testing.T) {
	c := New("ws://127.0.0.1:1", testIdentity())

	if err := c.RefreshBalance(context.Background()); err == nil {
		t.Fatal("expected error without gateway")
	}
}
