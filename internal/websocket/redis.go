package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "listkeep:user:"

func channelName(userID string) string {
	return channelPrefix + userID
}

// RedisRelay publishes notifications through Redis so every server instance
// sharing the database sees each other's writes. Run re-broadcasts what it
// receives on the local hub.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

// NewRedisRelay connects to redisURL and verifies the connection.
func NewRedisRelay(ctx context.Context, redisURL string, hub *Hub, logger *slog.Logger) (*RedisRelay, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisRelay{client: client, hub: hub, logger: logger}, nil
}

// Notify publishes msg on the user's channel. Publish failures fall back to a
// local broadcast so this instance's listeners still see the change.
func (r *RedisRelay) Notify(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal relay message", "error", err)
		return
	}
	if err := r.client.Publish(ctx, channelName(msg.UserID), data).Err(); err != nil {
		r.logger.Warn("redis publish failed, broadcasting locally", "error", err)
		r.hub.Broadcast(msg)
	}
}

// Run forwards relayed messages to the hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, ok := decodeRelayed(m.Channel, m.Payload)
			if !ok {
				r.logger.Warn("dropping malformed relay message", "channel", m.Channel)
				continue
			}
			r.hub.Broadcast(msg)
		}
	}
}

// decodeRelayed parses a relayed payload, trusting the channel name over the
// payload for the user id.
func decodeRelayed(channel, payload string) (Message, bool) {
	userID, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok || userID == "" {
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, false
	}
	msg.UserID = userID
	return msg, true
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
