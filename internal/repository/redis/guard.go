package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"neurostudy/internal/domain"
)

const keyPrefix = "neurostudy:generation:"

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another request is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Guard is a generation guard shared by every server instance using the same Redis.
type Guard struct {
	rdb    goredis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewGuard creates a guard. ttl bounds how long a crashed holder blocks the study.
func NewGuard(rdb goredis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Guard {
	return &Guard{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// Connect dials addr and pings it.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Acquire sets the key with NX and a TTL.
func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := keyPrefix + key

	ok, err := g.rdb.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return nil, &domain.ConflictError{
			Message:      "a generation is already running for this study",
			ResourceType: "study",
			ResourceID:   key,
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, g.rdb, []string{redisKey}, token).Err(); err != nil {
			g.logger.Warn("failed to release generation lock", "key", key, "error", err)
		}
	}, nil
}
