package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/younivision/livechat-go/chat"
)

// opTimeout bounds each Redis call so archive writes never stall the
// session.
const opTimeout = 2 * time.Second

func redisKey(roomID string) string {
	return "livechat:room:" + roomID + ":messages"
}

// Redis archives messages in a Redis list per room, trimmed to maxSize.
type Redis struct {
	client  redis.Cmdable
	maxSize int64
	log     *slog.Logger
}

// NewRedis creates a Redis archive retaining up to maxSize messages
// per room. A nil logger selects slog.Default.
func NewRedis(client redis.Cmdable, maxSize int, log *slog.Logger) *Redis {
	if log == nil {
		log = slog.Default()
	}
	return &Redis{
		client:  client,
		maxSize: int64(maxSize),
		log:     log,
	}
}

// Append adds a message to the room's list, trimming to maxSize.
func (r *Redis) Append(roomID string, msg chat.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Warn("archive: marshal message", "err", err)
		return
	}

	key := redisKey(roomID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -r.maxSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn("archive: append message", "err", err)
	}
}

// Recent returns the last n archived messages for a room.
func (r *Redis) Recent(roomID string, n int) []chat.Message {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	vals, err := r.client.LRange(ctx, redisKey(roomID), int64(-n), -1).Result()
	if err != nil {
		r.log.Warn("archive: read recent messages", "err", err)
		return nil
	}
	return decodeAll(vals)
}

// After returns the messages archived after the one with the given
// canonical id.
func (r *Redis) After(roomID, afterID string) []chat.Message {
	if afterID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	vals, err := r.client.LRange(ctx, redisKey(roomID), 0, -1).Result()
	if err != nil {
		r.log.Warn("archive: read messages", "err", err)
		return nil
	}

	msgs := decodeAll(vals)
	for i := range msgs {
		if msgs[i].ID == afterID {
			result := make([]chat.Message, len(msgs)-i-1)
			copy(result, msgs[i+1:])
			return result
		}
	}
	return nil
}

// Count returns the number of archived messages for a room.
func (r *Redis) Count(roomID string) int {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := r.client.LLen(ctx, redisKey(roomID)).Result()
	if err != nil {
		r.log.Warn("archive: count messages", "err", err)
		return 0
	}
	return int(n)
}

// Clear drops all archived messages for a room.
func (r *Redis) Clear(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, redisKey(roomID)).Err(); err != nil {
		r.log.Warn("archive: clear room", "err", err)
	}
}

func decodeAll(vals []string) []chat.Message {
	if len(vals) == 0 {
		return nil
	}
	msgs := make([]chat.Message, 0, len(vals))
	for _, v := range vals {
		var m chat.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}
