package chat

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/younivision/livechat-go/protocol"
)

const (
	// defaultTypingExpiry is how long a typing indicator stays up
	// without a follow-up TYPING frame.
	defaultTypingExpiry = 3 * time.Second

	// defaultTypingGrace delays the clear for an explicit
	// isTyping=false so rapid toggles don't flicker.
	defaultTypingGrace = 500 * time.Millisecond
)

// Reducer folds inbound envelopes into a Store. It owns the per-user
// typing expiry timers; everything else it does is a pure state
// transition on the store.
type Reducer struct {
	store *Store
	log   *slog.Logger

	typingExpiry time.Duration
	typingGrace  time.Duration

	// onMessage surfaces each appended live message to the embedder.
	onMessage func(Message)
	// onError surfaces server-sent error strings.
	onError func(string)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithTypingDurations overrides the typing expiry and grace delays.
// Tests use this to avoid multi-second sleeps.
func WithTypingDurations(expiry, grace time.Duration) ReducerOption {
	return func(r *Reducer) {
		r.typingExpiry = expiry
		r.typingGrace = grace
	}
}

// WithMessageHook sets the callback invoked for each live message
// appended to the store.
func WithMessageHook(fn func(Message)) ReducerOption {
	return func(r *Reducer) { r.onMessage = fn }
}

// WithErrorHook sets the callback invoked for server error envelopes.
func WithErrorHook(fn func(string)) ReducerOption {
	return func(r *Reducer) { r.onError = fn }
}

// WithReducerLogger sets the logger used for dropped frames.
func WithReducerLogger(l *slog.Logger) ReducerOption {
	return func(r *Reducer) { r.log = l }
}

// NewReducer creates a reducer writing to store.
func NewReducer(store *Store, opts ...ReducerOption) *Reducer {
	r := &Reducer{
		store:        store,
		log:          slog.Default(),
		typingExpiry: defaultTypingExpiry,
		typingGrace:  defaultTypingGrace,
		timers:       make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply dispatches one decoded envelope. Malformed payloads are logged
// and dropped without partial state mutation.
func (r *Reducer) Apply(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeHistory:
		r.applyHistory(env.Payload)
	case protocol.TypeMessage:
		r.applyMessage(env.Payload, false)
	case protocol.TypeTip:
		r.applyMessage(env.Payload, true)
	case protocol.TypeUserJoined:
		r.applyUserJoined(env.Payload)
	case protocol.TypeUserLeft:
		r.applyUserLeft(env.Payload)
	case protocol.TypeTyping:
		r.applyTyping(env.Payload)
	case protocol.TypeMessageReported:
		r.applyReported(env.Payload)
	case protocol.TypeMessageDelete:
		r.applyDelete(env.Payload)
	case protocol.TypeReaction:
		r.applyReaction(env.Payload)
	case protocol.TypeError:
		r.applyError(env.Payload)
	case protocol.TypePong:
		// Liveness only.
	default:
		r.log.Debug("chat: ignoring envelope", "type", string(env.Type))
	}
}

// applyHistory replaces messages and users wholesale with the
// normalized snapshot.
func (r *Reducer) applyHistory(payload json.RawMessage) {
	var p struct {
		Messages []json.RawMessage `json:"messages"`
		Users    []json.RawMessage `json:"users"`
		Room     json.RawMessage   `json:"room"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed HISTORY", "err", err)
		return
	}

	messages := make([]Message, 0, len(p.Messages))
	for _, raw := range p.Messages {
		msg, err := NormalizeMessage(raw, nil)
		if err != nil {
			r.log.Warn("chat: skipping malformed history message", "err", err)
			continue
		}
		messages = append(messages, msg)
	}

	users := make([]User, 0, len(p.Users))
	for _, raw := range p.Users {
		u, err := NormalizeUser(raw)
		if err != nil {
			r.log.Warn("chat: skipping malformed history user", "err", err)
			continue
		}
		users = append(users, u)
	}

	r.store.Replace(messages, users)

	if len(p.Room) > 0 && string(p.Room) != "null" {
		var room Room
		if err := json.Unmarshal(p.Room, &room); err == nil {
			r.store.SetRoom(room)
		}
	}
}

// applyMessage appends one live message. forceTip marks TIP envelopes,
// whose messages are tips even when the tip body is elsewhere in the
// payload.
func (r *Reducer) applyMessage(payload json.RawMessage, forceTip bool) {
	var p protocol.MessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed MESSAGE", "err", err)
		return
	}
	if len(p.Message) == 0 {
		r.log.Warn("chat: dropping MESSAGE without message body")
		return
	}

	msg, err := NormalizeMessage(p.Message, p.Tip)
	if err != nil {
		r.log.Warn("chat: dropping malformed MESSAGE", "err", err)
		return
	}
	if forceTip {
		msg.Type = TypeTip
	}

	r.store.Append(msg)
	if r.onMessage != nil {
		r.onMessage(msg)
	}
}

func (r *Reducer) applyUserJoined(payload json.RawMessage) {
	var p protocol.UserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed USER_JOINED", "err", err)
		return
	}
	u, err := NormalizeUser(p.User)
	if err != nil {
		r.log.Warn("chat: dropping malformed USER_JOINED", "err", err)
		return
	}
	r.store.UpsertUser(u)
}

func (r *Reducer) applyUserLeft(payload json.RawMessage) {
	var p protocol.UserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed USER_LEFT", "err", err)
		return
	}
	u, err := NormalizeUser(p.User)
	if err != nil {
		r.log.Warn("chat: dropping malformed USER_LEFT", "err", err)
		return
	}
	r.store.RemoveUser(u.UserID)
}

// applyTyping sets or schedules the clearing of a typing indicator. A
// new TYPING frame for the same user cancels and replaces any pending
// timer, so timers never leak or fire twice.
func (r *Reducer) applyTyping(payload json.RawMessage) {
	var p protocol.TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed TYPING", "err", err)
		return
	}
	if p.UserID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	if t, ok := r.timers[p.UserID]; ok {
		t.Stop()
		delete(r.timers, p.UserID)
	}

	userID := p.UserID
	if p.IsTyping {
		r.store.SetTyping(userID, true)
		r.timers[userID] = time.AfterFunc(r.typingExpiry, func() {
			r.expireTyping(userID)
		})
	} else {
		r.timers[userID] = time.AfterFunc(r.typingGrace, func() {
			r.expireTyping(userID)
		})
	}
}

func (r *Reducer) expireTyping(userID string) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	delete(r.timers, userID)
	r.mu.Unlock()
	r.store.ClearTyping(userID)
}

func (r *Reducer) applyReported(payload json.RawMessage) {
	var p protocol.ReportedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed MESSAGE_REPORTED", "err", err)
		return
	}
	r.store.SetReports(p.MessageID, NormalizeReports(p.Reports))
}

func (r *Reducer) applyDelete(payload json.RawMessage) {
	var p protocol.DeletePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed MESSAGE_DELETE", "err", err)
		return
	}
	deletedAt := time.Now()
	if at, err := time.Parse(time.RFC3339Nano, p.DeletedAt); err == nil {
		deletedAt = at
	}
	r.store.MarkDeleted(p.MessageID, p.DeletedBy, deletedAt)
}

func (r *Reducer) applyReaction(payload json.RawMessage) {
	var p protocol.ReactionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed REACTION", "err", err)
		return
	}
	switch p.Action {
	case "add":
		r.store.ApplyReaction(p.MessageID, p.Emoji, p.UserID, ReactionAdd)
	case "remove":
		r.store.ApplyReaction(p.MessageID, p.Emoji, p.UserID, ReactionRemove)
	default:
		r.log.Warn("chat: dropping REACTION with unknown action", "action", p.Action)
	}
}

func (r *Reducer) applyError(payload json.RawMessage) {
	var p protocol.ErrorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("chat: dropping malformed ERROR", "err", err)
		return
	}
	if r.onError != nil {
		r.onError(p.Error)
	}
}

// StopTimers cancels every outstanding typing timer. The connection
// manager calls it on teardown so no timer fires against a torn-down
// store; further TYPING frames are ignored until Reset.
func (r *Reducer) StopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// Reset re-arms a reducer whose timers were stopped, for reuse on
// reconnect.
func (r *Reducer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = false
}
