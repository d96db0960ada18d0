package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"partschat/pkg"
)

const transcriptKeyPrefix = "transcript:"

// RedisTranscripts is a TranscriptRepository backed by a Redis list with
// a TTL refreshed on every read and write.
type RedisTranscripts struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTranscripts connects to Redis and verifies the connection.
func NewRedisTranscripts(ctx context.Context, url string, ttl time.Duration) (*RedisTranscripts, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTranscripts{client: client, ttl: ttl}, nil
}

func (r *RedisTranscripts) key(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}

func (r *RedisTranscripts) Append(ctx context.Context, conversationID string, msg pkg.TranscriptMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode transcript message: %w", err)
	}

	key := r.key(conversationID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append transcript message: %w", err)
	}
	return nil
}

func (r *RedisTranscripts) History(ctx context.Context, conversationID string) ([]pkg.TranscriptMessage, error) {
	key := r.key(conversationID)

	raw, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	history := make([]pkg.TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg pkg.TranscriptMessage
		if err := sonic.UnmarshalString(item, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode transcript message: %w", err)
		}
		history = append(history, msg)
	}

	// Reading keeps an active conversation's transcript alive.
	r.client.Expire(ctx, key, r.ttl)

	return history, nil
}

func (r *RedisTranscripts) Delete(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, r.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisTranscripts) Close() error {
	return r.client.Close()
}
