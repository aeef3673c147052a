package client

import (
	"log/slog"
	"time"

	"github.com/younivision/livechat-go/archive"
	"github.com/younivision/livechat-go/chat"
	"github.com/younivision/livechat-go/internal/ratelimit"
	"github.com/younivision/livechat-go/wallet"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithAPIKey sets the key appended to the WebSocket URL as the apiKey
// query parameter.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithGateway sets the wallet gateway used for the tip flow. Without
// a gateway, tips are broadcast without a payment step.
func WithGateway(g wallet.Gateway) Option {
	return func(c *Client) { c.gateway = g }
}

// WithArchive persists every live message the session observes.
func WithArchive(a archive.Archive) Option {
	return func(c *Client) { c.arch = a }
}

// WithSlowMode limits outbound messages to max per window.
func WithSlowMode(max int, window time.Duration) Option {
	return func(c *Client) { c.limiter = ratelimit.New(max, window) }
}

// WithHeartbeatInterval overrides how often PING frames are sent.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.heartbeatInterval = d
		}
	}
}

// WithReconnectPolicy overrides the reconnect behavior.
func WithReconnectPolicy(p ReconnectPolicy) Option {
	return func(c *Client) { c.reconnect = p }
}

// WithTypingDurations overrides the typing indicator expiry and the
// grace period applied when a user reports they stopped typing.
func WithTypingDurations(expiry, grace time.Duration) Option {
	return func(c *Client) {
		c.typingExpiry = expiry
		c.typingGrace = grace
	}
}

// OnConnect registers a callback invoked each time a connection opens,
// including reconnects.
func OnConnect(fn func()) Option {
	return func(c *Client) { c.onConnect = fn }
}

// OnDisconnect registers a callback invoked when the connection drops.
// The error is nil for a deliberate disconnect.
func OnDisconnect(fn func(error)) Option {
	return func(c *Client) { c.onDisconnect = fn }
}

// OnMessage registers a callback invoked once per live message, after
// it has been normalized and stored.
func OnMessage(fn func(chat.Message)) Option {
	return func(c *Client) { c.onMessage = fn }
}

// OnError registers a callback for server-reported errors.
func OnError(fn func(string)) Option {
	return func(c *Client) { c.onError = fn }
}
