package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const SessionKeyPrefix = "login:user:session"

// 值等于 ARGV[1] 才删除
var deleteIfMatchScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// SessionRepository 每个用户只保留一个活跃会话，新登录覆盖旧会话
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

func (r *SessionRepository) key(userID uint64) string {
	return fmt.Sprintf("%s:%d", SessionKeyPrefix, userID)
}

func (r *SessionRepository) Save(ctx context.Context, userID uint64, sessionID string) error {
	if err := r.client.Set(ctx, r.key(userID), sessionID, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, userID uint64) (string, error) {
	sid, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return sid, nil
}

// Extend 滑动续期
func (r *SessionRepository) Extend(ctx context.Context, userID uint64) error {
	if err := r.client.Expire(ctx, r.key(userID), r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteIfMatch 只删除仍属于 sessionID 的会话，用 lua 保证原子性；会话已不存在也返回 nil
func (r *SessionRepository) DeleteIfMatch(ctx context.Context, userID uint64, sessionID string) error {
	_, err := deleteIfMatchScript.Run(ctx, r.client, []string{r.key(userID)}, sessionID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
