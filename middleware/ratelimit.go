package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/BerniceZTT/leads_end/utils"
)

// Limiter 按键限流
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit 按客户端IP限流。限流器出错时放行并记录日志
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)
		allowed, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			utils.Logger.Warn().Err(err).Str("ip", ip).Msg("限流检查失败，放行请求")
			c.Next()
			return
		}
		if !allowed {
			utils.HandleError(c, utils.CreateTooManyRequestsError())
			return
		}
		c.Next()
	}
}

// MemoryLimiter 进程内固定窗口限流
type MemoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type visitor struct {
	count     int
	lastReset time.Time
}

// NewMemoryLimiter 每个键在 window 内最多 limit 次
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, exists := l.visitors[key]
	if !exists || now.Sub(v.lastReset) >= l.window {
		l.visitors[key] = &visitor{count: 1, lastReset: now}
		return true, nil
	}
	if v.count >= l.limit {
		return false, nil
	}
	v.count++
	return true, nil
}

// sweep 清理过期窗口，避免 map 无限增长
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastReset) >= l.window {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

// RedisLimiter 多实例共享的滑动窗口限流
type RedisLimiter struct {
	client    goredis.UniversalClient
	keyPrefix string
	limit     int64
	window    time.Duration
}

func NewRedisLimiter(client goredis.UniversalClient, keyPrefix string, limit int, window time.Duration) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, keyPrefix: keyPrefix, limit: int64(limit), window: window}
}

var slidingWindow = goredis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call("zremrangebyscore", key, "-inf", window_start)
	local current = redis.call("zcard", key)
	if current < limit then
		redis.call("zadd", key, now, now .. "-" .. math.random())
		redis.call("pexpire", key, window_ms)
		return 1
	end
	return 0
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	result, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
	).Result()
	if err != nil {
		return false, fmt.Errorf("redis 限流失败: %w", err)
	}
	allowed, err := toInt64(result)
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected numeric type %T", v)
}
