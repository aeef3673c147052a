// Package protocol defines the wire envelope exchanged with the chat
// service and the codec that serializes it. The codec is pure and
// stateless; connection handling lives in the client package.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Type identifies the kind of envelope on the wire.
type Type string

const (
	// Connection lifecycle.
	TypeConnect Type = "CONNECT"
	TypePing    Type = "PING"
	TypePong    Type = "PONG"

	// Messages.
	TypeHistory         Type = "HISTORY"
	TypeMessage         Type = "MESSAGE"
	TypeTip             Type = "TIP"
	TypeMessageReport   Type = "MESSAGE_REPORT"
	TypeMessageReported Type = "MESSAGE_REPORTED"
	TypeMessageDelete   Type = "MESSAGE_DELETE"

	// Reactions.
	TypeReactionAdd    Type = "REACTION_ADD"
	TypeReactionRemove Type = "REACTION_REMOVE"
	TypeReaction       Type = "REACTION"

	// Users.
	TypeUserJoined Type = "USER_JOINED"
	TypeUserLeft   Type = "USER_LEFT"
	TypeUserBan    Type = "USER_BAN"

	// Typing indicators.
	TypeTyping Type = "TYPING"

	// Errors.
	TypeError Type = "ERROR"
)

// Envelope is one discrete protocol frame. The payload is kept raw so
// each envelope type can unmarshal its own shape.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeError reports a frame that could not be decoded. Callers are
// expected to log it and drop the frame without touching any state.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: decode: %s: %v", e.Reason, e.Err)
	}
	return "protocol: decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes an envelope for the wire.
func Encode(env Envelope) ([]byte, error) {
	if env.Type == "" {
		return nil, fmt.Errorf("protocol: encode: empty type")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return data, nil
}

// Decode parses a wire frame into an envelope. A malformed frame
// returns a *DecodeError and a zero envelope.
func Decode(data []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Envelope{}, &DecodeError{Reason: "empty frame"}
	}
	if trimmed[0] != '{' {
		return Envelope{}, &DecodeError{Reason: "frame is not a JSON object"}
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	if env.Type == "" {
		return Envelope{}, &DecodeError{Reason: "missing type"}
	}
	return env, nil
}

// Make builds an envelope with the given payload struct marshalled in
// place. It is a convenience for the outbound command layer.
func Make(t Type, payload any) (Envelope, error) {
	env := Envelope{Type: t}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: marshal %s payload: %w", t, err)
	}
	env.Payload = data
	return env, nil
}
