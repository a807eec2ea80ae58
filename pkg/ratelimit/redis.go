package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"Chatrigo/pkg/logger"
)

// slidingWindow prunes, counts and conditionally records in one step so
// concurrent instances share a consistent quota.
// KEYS[1]=key ARGV[1]=now(ms) ARGV[2]=window(ms) ARGV[3]=capacity ARGV[4]=member
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= capacity then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Redis is a sliding-window limiter shared by every instance that points at
// the same Redis. On Redis errors it admits and logs.
type Redis struct {
	client   redis.Scripter
	prefix   string
	window   time.Duration
	capacity int
	now      func() time.Time
}

func NewRedis(client redis.Scripter, window time.Duration, capacity int) *Redis {
	return &Redis{
		client:   client,
		prefix:   "ratelimit:",
		window:   window,
		capacity: capacity,
		now:      time.Now,
	}
}

func (r *Redis) Admit(ctx context.Context, identity string) bool {
	now := r.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()
	res, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + identity},
		now, r.window.Milliseconds(), r.capacity, member).Int()
	if err != nil {
		logger.L.Warn("rate limiter redis error, admitting request",
			zap.String("identity", identity), zap.Error(err))
		return true
	}
	return res == 1
}

// NewRedisClient parses url (redis://...) and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
