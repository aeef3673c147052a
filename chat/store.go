package chat

import (
	"sync"
	"time"
)

// Store is the canonical mutable state for one widget instance:
// messages, users, room metadata, the typing set and the connected
// flag. It is written by the Reducer (and the connected flag by the
// connection manager) and read by the UI through copying accessors, so
// multiple widget instances never share state.
type Store struct {
	mu        sync.RWMutex
	messages  []Message
	users     []User
	room      *Room
	typing    map[string]bool
	connected bool
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{typing: make(map[string]bool)}
}

// Replace installs a wholesale snapshot of messages and users, as
// delivered by a HISTORY envelope. Nothing is merged.
func (s *Store) Replace(messages []Message, users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]Message(nil), messages...)
	s.users = append([]User(nil), users...)
}

// Append adds a message to the end of the transcript. Append order is
// arrival order; no reordering by payload timestamp.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// SetReports replaces the reports list of the message with the given
// canonical id. It is a no-op when the message is not present locally.
func (s *Store) SetReports(messageID string, reports []Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].Matches(messageID) {
			s.messages[i].Reports = append([]Report(nil), reports...)
			return
		}
	}
}

// MarkDeleted flags a message as deleted without removing it, so the
// transcript keeps its positions for scroll stability. No-op when the
// message is unknown.
func (s *Store) MarkDeleted(messageID, deletedBy string, deletedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].Matches(messageID) {
			s.messages[i].IsDeleted = true
			s.messages[i].DeletedBy = deletedBy
			at := deletedAt
			s.messages[i].DeletedAt = &at
			return
		}
	}
}

// ReactionAction is the direction of a reaction mutation.
type ReactionAction string

const (
	ReactionAdd    ReactionAction = "add"
	ReactionRemove ReactionAction = "remove"
)

// ApplyReaction adds or removes a user on the named emoji of a message
// and recomputes the derived count. A user is never counted twice; an
// entry whose user set empties is retained at count zero. No-op when
// the message is unknown.
//
// The mutation is copy-on-write: snapshots handed out by Messages and
// Message share the Reactions backing arrays, so those are never
// written in place.
func (s *Store) ApplyReaction(messageID, emoji, userID string, action ReactionAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if !s.messages[i].Matches(messageID) {
			continue
		}
		msg := &s.messages[i]

		reactions := append([]Reaction(nil), msg.Reactions...)
		idx := -1
		for j := range reactions {
			if reactions[j].Emoji == emoji {
				idx = j
				break
			}
		}

		switch action {
		case ReactionAdd:
			if idx < 0 {
				reactions = append(reactions, Reaction{Emoji: emoji})
				idx = len(reactions) - 1
			}
			for _, u := range reactions[idx].Users {
				if u == userID {
					return
				}
			}
			users := append([]string(nil), reactions[idx].Users...)
			reactions[idx].Users = append(users, userID)
			reactions[idx].Count = len(reactions[idx].Users)
			msg.Reactions = reactions
		case ReactionRemove:
			if idx < 0 {
				return
			}
			users := make([]string, 0, len(reactions[idx].Users))
			for _, u := range reactions[idx].Users {
				if u != userID {
					users = append(users, u)
				}
			}
			reactions[idx].Users = users
			reactions[idx].Count = len(users)
			msg.Reactions = reactions
		}
		return
	}
}

// UpsertUser adds a user or replaces the existing entry with the same
// UserID (last-write-wins presence).
func (s *Store) UpsertUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].UserID == user.UserID {
			s.users[i] = user
			return
		}
	}
	s.users = append(s.users, user)
}

// RemoveUser deletes a user by id; no-op if absent.
func (s *Store) RemoveUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].UserID == userID {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return
		}
	}
}

// SetTyping records whether a user is typing.
func (s *Store) SetTyping(userID string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing[userID] = typing
}

// ClearTyping removes a user from the typing set.
func (s *Store) ClearTyping(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.typing, userID)
}

// SetRoom installs the room metadata.
func (s *Store) SetRoom(room Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = &room
}

// SetConnected records the connection flag.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Messages returns a copy of the transcript in order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Message returns the message with the given canonical id.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.messages {
		if s.messages[i].Matches(id) {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// MessageCount returns the transcript length.
func (s *Store) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Users returns a copy of the present users in join order.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]User(nil), s.users...)
}

// FirstUser returns the first user in the room, used as the default
// tip recipient.
func (s *Store) FirstUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.users) == 0 {
		return User{}, false
	}
	return s.users[0], true
}

// Typing returns the ids of users currently marked as typing.
func (s *Store) Typing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.typing))
	for id, on := range s.typing {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsTyping reports whether one user is marked as typing.
func (s *Store) IsTyping(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing[userID]
}

// Room returns the room metadata, if the server provided any.
func (s *Store) Room() (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room == nil {
		return Room{}, false
	}
	return *s.room, true
}

// Connected reports the connection flag.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
