package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

// RedisStore keeps each user's history in a Redis list so several service
// replicas share it. The window is enforced by trimming in the same MULTI
// as the push.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	window int
	logger *zap.Logger
}

func NewRedisStore(ctx context.Context, addr, prefix string, window int, logger *zap.Logger) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if window <= 0 {
		window = DefaultWindow
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("Connected to Redis conversation store", zap.String("addr", addr))
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		window: window,
		logger: logger,
	}, nil
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Append(ctx context.Context, userID int64, turn models.ConversationTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	key := s.key(userID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-s.window), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history for user %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	values, err := s.rdb.LRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history for user %d: %w", userID, err)
	}

	turns := make([]models.ConversationTurn, 0, len(values))
	for _, v := range values {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			s.logger.Warn("Skipping malformed history entry",
				zap.Error(err),
				zap.Int64("user_id", userID))
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Reset(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("reset history for user %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
