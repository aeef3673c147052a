package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/younivision/livechat-go/chat"
	"github.com/younivision/livechat-go/protocol"
	"github.com/younivision/livechat-go/wallet"
)

// ErrSlowMode is returned by SendMessage when the slow mode limit has
// been reached.
var ErrSlowMode = errors.New("client: slow mode limit reached")

// SendMessage sends a chat message, optionally with media attachments.
// When slow mode is configured and the limit is hit, the message is
// not sent and ErrSlowMode is returned.
func (c *Client) SendMessage(content string, media ...chat.MediaItem) error {
	if c.limiter != nil {
		userID := c.Identity().UserID
		if !c.limiter.Allow(userID) {
			c.log.Debug("slow mode throttled", "retryIn", c.limiter.Wait(userID))
			return ErrSlowMode
		}
	}
	payload := protocol.SendMessagePayload{Content: content}
	if len(media) > 0 {
		payload.Media = media
	}
	c.send(protocol.TypeMessage, payload)
	return nil
}

// SendTyping reports whether the local user is typing. The server
// stamps the user id before fanning out.
func (c *Client) SendTyping(isTyping bool) {
	c.send(protocol.TypeTyping, protocol.TypingPayload{IsTyping: isTyping})
}

// AddReaction adds an emoji reaction to a message.
func (c *Client) AddReaction(messageID, emoji string) {
	c.send(protocol.TypeReactionAdd, protocol.ReactionPayload{
		MessageID: messageID,
		Emoji:     emoji,
	})
}

// RemoveReaction removes an emoji reaction from a message.
func (c *Client) RemoveReaction(messageID, emoji string) {
	c.send(protocol.TypeReactionRemove, protocol.ReactionPayload{
		MessageID: messageID,
		Emoji:     emoji,
	})
}

// ReportMessage flags a message for moderation.
func (c *Client) ReportMessage(messageID, reason string) {
	c.send(protocol.TypeMessageReport, protocol.ReportPayload{
		MessageID: messageID,
		Reason:    reason,
	})
}

// DeleteMessage requests deletion of a message. The local store is
// only updated when the MESSAGE_DELETE fan-out comes back.
func (c *Client) DeleteMessage(messageID string) {
	c.send(protocol.TypeMessageDelete, protocol.DeletePayload{MessageID: messageID})
}

// BanUser requests a ban for the given user in the current room.
func (c *Client) BanUser(userID string) {
	c.send(protocol.TypeUserBan, protocol.BanPayload{
		UserIDToBan: userID,
		RoomID:      c.Identity().RoomID,
	})
}

// SendTip runs the two-phase tip flow: settle the payment through the
// wallet gateway, then broadcast the TIP frame and refresh the cached
// balance. Without a gateway the broadcast happens immediately. An
// empty recipientID falls back to the first user in the room roster.
// The TIP frame is never sent when the payment fails.
func (c *Client) SendTip(ctx context.Context, amount float64, recipientID, recipientName string) error {
	if amount <= 0 {
		return fmt.Errorf("client: tip amount must be positive, got %v", amount)
	}

	if recipientID == "" {
		u, ok := c.store.FirstUser()
		if !ok {
			return errors.New("client: no tip recipient available")
		}
		recipientID = u.UserID
		recipientName = u.Username
	}

	if c.gateway != nil {
		identity := c.Identity()
		token, err := c.bearerToken(ctx)
		if err != nil {
			return err
		}
		req := wallet.TipRequest{
			RecipientID:   recipientID,
			RecipientName: recipientName,
			Amount:        amount,
			RoomID:        identity.RoomID,
		}
		err = c.gateway.SendTip(ctx, token, req)
		if errors.Is(err, wallet.ErrUnauthorized) {
			// Token expired; refresh once and retry once.
			token, err = c.refreshToken(ctx)
			if err != nil {
				return err
			}
			err = c.gateway.SendTip(ctx, token, req)
		}
		if err != nil {
			return err
		}
	}

	c.send(protocol.TypeTip, protocol.TipPayload{
		Amount:        amount,
		RecipientID:   recipientID,
		RecipientName: recipientName,
	})

	if c.gateway != nil {
		if err := c.RefreshBalance(ctx); err != nil {
			c.log.Warn("refresh balance after tip", "err", err)
		}
	}
	return nil
}

// Balance returns the last balance fetched from the wallet gateway.
func (c *Client) Balance() float64 {
	c.walletMu.Lock()
	defer c.walletMu.Unlock()
	return c.balance
}

// RefreshBalance fetches the wallet balance and caches it.
func (c *Client) RefreshBalance(ctx context.Context) error {
	if c.gateway == nil {
		return errors.New("client: no wallet gateway configured")
	}

	userID := c.Identity().UserID
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	balance, err := c.gateway.Balance(ctx, token, userID)
	if errors.Is(err, wallet.ErrUnauthorized) {
		token, err = c.refreshToken(ctx)
		if err != nil {
			return err
		}
		balance, err = c.gateway.Balance(ctx, token, userID)
	}
	if err != nil {
		return err
	}

	c.walletMu.Lock()
	c.balance = balance
	c.walletMu.Unlock()
	return nil
}

// bearerToken returns the cached gateway token, fetching one if none
// is cached yet.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.walletMu.Lock()
	token := c.token
	c.walletMu.Unlock()
	if token != "" {
		return token, nil
	}
	return c.refreshToken(ctx)
}

// refreshToken fetches a fresh gateway token and caches it.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	identity := c.Identity()
	token, err := c.gateway.BearerToken(ctx, identity.UserID, identity.RoomID, identity.Username)
	if err != nil {
		return "", err
	}
	c.walletMu.Lock()
	c.token = token
	c.walletMu.Unlock()
	return token, nil
}
