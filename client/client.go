// Package client implements the chat session client: it dials the chat
// server over WebSocket, announces the session identity, feeds every
// inbound frame through the event reducer, and keeps the connection
// alive with heartbeats and automatic reconnects.
package client

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/younivision/livechat-go/archive"
	"github.com/younivision/livechat-go/chat"
	"github.com/younivision/livechat-go/internal/ratelimit"
	"github.com/younivision/livechat-go/protocol"
	"github.com/younivision/livechat-go/wallet"
)

const (
	// writeTimeout is the max time to wait for a single write to complete.
	writeTimeout = 5 * time.Second

	// defaultHeartbeatInterval is how often a PING is sent while open.
	defaultHeartbeatInterval = 30 * time.Second

	// defaultReconnectDelay is the fixed pause before a reconnect attempt.
	defaultReconnectDelay = 3 * time.Second
)

// State describes where the client is in its connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Identity is the session identity announced in the CONNECT frame.
type Identity struct {
	UserID   string
	Username string
	RoomID   string
	Role     string
	Avatar   string
	Color    string
}

// ReconnectPolicy controls how dropped connections are retried. The
// zero Multiplier (or any value <= 1) keeps the delay fixed.
// MaxAttempts of 0 retries forever.
type ReconnectPolicy struct {
	Delay       time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	MaxAttempts int
}

// Client is a chat session bound to one server URL and one identity.
// All exported methods are safe for concurrent use.
type Client struct {
	serverURL string
	apiKey    string

	store   *chat.Store
	reducer *chat.Reducer
	gateway wallet.Gateway
	arch    archive.Archive
	limiter *ratelimit.Limiter
	log     *slog.Logger

	heartbeatInterval time.Duration
	reconnect         ReconnectPolicy
	typingExpiry      time.Duration
	typingGrace       time.Duration

	onConnect    func()
	onDisconnect func(error)
	onMessage    func(chat.Message)
	onError      func(string)

	mu         sync.Mutex
	identity   Identity
	state      State
	conn       *websocket.Conn
	connCancel context.CancelFunc
	// gen increments on every connect and disconnect so callbacks from
	// a superseded connection can detect they are stale.
	gen            int
	attempts       int
	deliberate     bool
	reconnectTimer *time.Timer

	walletMu sync.Mutex
	token    string
	balance  float64
}

// New creates a Client for the given server URL and identity. The
// client does not connect until Connect is called.
func New(serverURL string, identity Identity, opts ...Option) *Client {
	c := &Client{
		serverURL:         serverURL,
		identity:          identity,
		store:             chat.NewStore(),
		log:               slog.Default(),
		heartbeatInterval: defaultHeartbeatInterval,
		reconnect:         ReconnectPolicy{Delay: defaultReconnectDelay},
	}
	for _, opt := range opts {
		opt(c)
	}

	ropts := []chat.ReducerOption{
		chat.WithReducerLogger(c.log),
		chat.WithMessageHook(c.handleMessage),
		chat.WithErrorHook(c.handleError),
	}
	if c.typingExpiry > 0 || c.typingGrace > 0 {
		ropts = append(ropts, chat.WithTypingDurations(c.typingExpiry, c.typingGrace))
	}
	c.reducer = chat.NewReducer(c.store, ropts...)
	return c
}

// Store exposes the session state for reads.
func (c *Client) Store() *chat.Store { return c.store }

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the identity the client announces on connect.
func (c *Client) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Connect dials the server and announces the identity. It is a no-op
// when a connection is already open or being established. A dial
// failure schedules a reconnect per the policy and returns the error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.deliberate = false
	c.attempts = 0
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.mu.Unlock()

	return c.dial(ctx, gen)
}

// Disconnect closes the connection and cancels any pending reconnect.
// A disconnect requested here never triggers a reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.deliberate = true
	c.gen++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	conn := c.conn
	c.conn = nil
	wasOpen := c.state == StateOpen
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	c.reducer.StopTimers()
	if wasOpen {
		c.store.SetConnected(false)
		if c.onDisconnect != nil {
			c.onDisconnect(nil)
		}
	}
}

// UpdateIdentity replaces the session identity and, if the client was
// connected, reconnects with the new one.
func (c *Client) UpdateIdentity(ctx context.Context, identity Identity) error {
	c.mu.Lock()
	active := c.state != StateDisconnected
	c.mu.Unlock()

	if active {
		c.Disconnect()
	}

	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()

	if active {
		return c.Connect(ctx)
	}
	return nil
}

func (c *Client) dial(ctx context.Context, gen int) error {
	conn, _, err := websocket.Dial(ctx, c.dialURL(), nil)
	if err != nil {
		c.log.Warn("dial failed", "url", c.serverURL, "err", err)
		c.mu.Lock()
		if gen == c.gen && !c.deliberate {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if gen != c.gen || c.deliberate {
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "superseded")
		return nil
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	identity := c.identity
	connCtx, cancel := context.WithCancel(context.Background())
	c.connCancel = cancel
	c.mu.Unlock()

	c.reducer.Reset()
	c.store.SetConnected(true)

	c.send(protocol.TypeConnect, protocol.ConnectPayload{
		UserID:   identity.UserID,
		Username: identity.Username,
		RoomID:   identity.RoomID,
		Role:     identity.Role,
		Avatar:   identity.Avatar,
		Color:    identity.Color,
	})

	if c.onConnect != nil {
		c.onConnect()
	}

	go c.readLoop(connCtx, conn, gen)
	go c.heartbeat(connCtx)
	return nil
}

// dialURL appends the api key as a query parameter when configured.
func (c *Client) dialURL() string {
	if c.apiKey == "" {
		return c.serverURL
	}
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return c.serverURL
	}
	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// readLoop decodes each inbound frame and hands it to the reducer.
// Malformed frames are dropped; only transport errors end the loop.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		env, derr := protocol.Decode(data)
		if derr != nil {
			c.log.Debug("dropping malformed frame", "err", derr)
			continue
		}
		c.reducer.Apply(env)
	}
}

// heartbeat sends a PING at the configured interval while the
// connection is open.
func (c *Client) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.send(protocol.TypePing, nil)
		}
	}
}

func (c *Client) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	c.conn = nil
	status := websocket.CloseStatus(err)
	normal := status == websocket.StatusNormalClosure
	if normal {
		c.state = StateDisconnected
	} else {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	c.store.SetConnected(false)
	c.reducer.StopTimers()
	if !normal && c.onError != nil {
		c.onError("Connection error")
	}
	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

// scheduleReconnectLocked arms the reconnect timer. Caller holds mu.
func (c *Client) scheduleReconnectLocked() {
	c.attempts++
	if c.reconnect.MaxAttempts > 0 && c.attempts > c.reconnect.MaxAttempts {
		c.state = StateDisconnected
		c.log.Warn("giving up after max reconnect attempts", "attempts", c.attempts-1)
		return
	}

	delay := c.reconnectDelay(c.attempts)
	c.state = StateReconnecting
	c.gen++
	gen := c.gen
	c.log.Info("scheduling reconnect", "attempt", c.attempts, "delay", delay)
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen || c.deliberate {
			c.mu.Unlock()
			return
		}
		c.reconnectTimer = nil
		c.state = StateConnecting
		c.mu.Unlock()
		c.dial(context.Background(), gen)
	})
}

func (c *Client) reconnectDelay(attempt int) time.Duration {
	delay := c.reconnect.Delay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	if c.reconnect.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * c.reconnect.Multiplier)
			if c.reconnect.MaxDelay > 0 && delay >= c.reconnect.MaxDelay {
				return c.reconnect.MaxDelay
			}
		}
	}
	return delay
}

// send encodes and writes an envelope. Sends while not open are
// dropped silently, matching the fire-and-forget outbound contract.
func (c *Client) send(t protocol.Type, payload any) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		c.log.Debug("dropping send while offline", "type", t)
		return
	}

	env, err := protocol.Make(t, payload)
	if err != nil {
		c.log.Warn("encode payload", "type", t, "err", err)
		return
	}
	data, err := protocol.Encode(env)
	if err != nil {
		c.log.Warn("encode envelope", "type", t, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.log.Warn("write frame", "type", t, "err", err)
	}
}

// handleMessage is the reducer's message hook: archive first, then
// notify the embedder.
func (c *Client) handleMessage(msg chat.Message) {
	if c.arch != nil {
		c.arch.Append(c.Identity().RoomID, msg)
	}
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

func (c *Client) handleError(errMsg string) {
	c.log.Warn("server error", "error", errMsg)
	if c.onError != nil {
		c.onError(errMsg)
	}
}
