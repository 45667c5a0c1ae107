package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/config"
)

// redisStore keeps conversation history in a Redis list per conversation,
// so transcripts survive restarts and can be shared across instances.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using the provided configuration.
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &redisStore{client: client}
}

func conversationKey(conversationID string) string {
	return "conversation:" + conversationID
}

func (s *redisStore) History(ctx context.Context, conversationID string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, conversationKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation history: %w", err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *redisStore) Append(ctx context.Context, conversationID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, data)
	}
	if err := s.client.RPush(ctx, conversationKey(conversationID), values...).Err(); err != nil {
		return fmt.Errorf("append conversation history: %w", err)
	}
	return nil
}
