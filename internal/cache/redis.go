package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// advanceScript sets the key to ARGV[1] only when it is larger than the
// stored value, refreshing the TTL either way.
var advanceScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local candidate = tonumber(ARGV[1])
if candidate > current then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
  return candidate
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return current
`)

// Redis stores marks under "<prefix>:<session id>".
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis builds a Redis-backed HighWaterMarks.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "chat:hwm"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(sessionID int64) string {
	return r.prefix + ":" + strconv.FormatInt(sessionID, 10)
}

func (r *Redis) Advance(ctx context.Context, sessionID, id int64) error {
	if err := advanceScript.Run(ctx, r.client, []string{r.key(sessionID)}, id, r.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("advance hint: %w", err)
	}
	return nil
}

func (r *Redis) Latest(ctx context.Context, sessionID int64) (int64, bool, error) {
	id, err := r.client.Get(ctx, r.key(sessionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read hint: %w", err)
	}
	return id, true, nil
}
