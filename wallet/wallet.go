// Package wallet talks to the tip/wallet API gateway. The chat client
// consumes it through the Gateway interface so embedders can swap in
// their own payment backend; Client is the default implementation
// against the hosted gateway.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the hosted API gateway.
const DefaultBaseURL = "https://api-gateway.dev.1houseglobalservices.com"

// ErrUnauthorized is returned for HTTP 401 responses. The command
// layer refreshes the bearer token and retries exactly once on it.
var ErrUnauthorized = errors.New("wallet: unauthorized")

// TipRequest is one tip to be settled before it is broadcast to chat.
type TipRequest struct {
	RecipientID   string  `json:"recipientId"`
	RecipientName string  `json:"recipientName"`
	Amount        float64 `json:"amount"`
	RoomID        string  `json:"roomId"`
}

// Gateway is the wallet collaborator consumed by the chat client.
type Gateway interface {
	// BearerToken exchanges the session identity for a bearer token.
	BearerToken(ctx context.Context, userID, roomID, username string) (string, error)
	// Balance returns the user's wallet balance in tokens.
	Balance(ctx context.Context, token, userID string) (float64, error)
	// SendTip settles a tip. ErrUnauthorized signals an expired token.
	SendTip(ctx context.Context, token string, tip TipRequest) error
}

// Client implements Gateway against the REST API gateway.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the x-api-key header sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a gateway client. An empty baseURL selects the
// hosted gateway.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenResponse covers the shapes the gateway is known to return: the
// token may live at the top level or under data, under several names.
type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	BearerToken string `json:"bearerToken"`
	Data        *struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		BearerToken string `json:"bearerToken"`
	} `json:"data"`
}

func (r *tokenResponse) token() string {
	if r.Data != nil {
		if t := firstNonEmpty(r.Data.Token, r.Data.AccessToken, r.Data.BearerToken); t != "" {
			return t
		}
	}
	return firstNonEmpty(r.Token, r.AccessToken, r.BearerToken)
}

// BearerToken fetches a token via POST /v1/auth/token.
func (c *Client) BearerToken(ctx context.Context, userID, roomID, username string) (string, error) {
	body := map[string]string{
		"userId":   userID,
		"roomId":   roomID,
		"username": username,
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/token", "", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("wallet: fetch token: %w", err)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("wallet: decode token response: %w", err)
	}
	token := tr.token()
	if token == "" {
		return "", errors.New("wallet: no token in response")
	}
	return token, nil
}

// balanceResponse mirrors tokenResponse: balance at the top level or
// under data.
type balanceResponse struct {
	Balance *float64 `json:"balance"`
	Data    *struct {
		Balance *float64 `json:"balance"`
	} `json:"data"`
}

// Balance fetches the wallet balance via GET /v1/wallets/balance/{userId}.
func (c *Client) Balance(ctx context.Context, token, userID string) (float64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/wallets/balance/"+userID, token, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, fmt.Errorf("wallet: fetch balance: %w", err)
	}

	var br balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return 0, fmt.Errorf("wallet: decode balance response: %w", err)
	}
	if br.Data != nil && br.Data.Balance != nil {
		return *br.Data.Balance, nil
	}
	if br.Balance != nil {
		return *br.Balance, nil
	}
	return 0, errors.New("wallet: no balance in response")
}

// SendTip settles a tip via POST /v1/wallets/tip.
func (c *Client) SendTip(ctx context.Context, token string, tip TipRequest) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/wallets/tip", token, tip)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("wallet: send tip: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("wallet: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("wallet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("wallet: request failed", "method", method, "path", path, "err", err)
		return nil, fmt.Errorf("wallet: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// checkStatus maps non-2xx responses to errors, with 401 as the typed
// sentinel the retry rule keys on.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
