package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"lingomate/utils"
)

const (
	LoginWindow      = 5 * time.Minute
	LoginMaxAttempts = 10
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps a sliding window of attempt times per key.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
	now     func() time.Time
}

func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	return &MemoryLimiter{
		window:  window,
		max:     max,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	ts := l.entries[key]

	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ts = kept
	if len(ts) >= l.max {
		l.entries[key] = ts
		return false, nil
	}

	l.entries[key] = append(ts, now)
	return true, nil
}

// RedisLimiter counts attempts in fixed windows shared by every instance.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
}

func NewRedisLimiter(client *redis.Client, window time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{client: client, window: window, max: max}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:login:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= int64(l.max), nil
}

// LoginRateLimit throttles login attempts per client IP and per email. A
// limiter failure lets the request through.
func LoginRateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		keys := []string{"ip:" + c.ClientIP()}
		if email := peekEmail(c); email != "" {
			keys = append(keys, "email:"+email)
		}

		for _, key := range keys {
			ok, err := limiter.Allow(c.Request.Context(), key)
			if err != nil {
				slog.WarnContext(c.Request.Context(), "login limiter unavailable", "error", err)
				break
			}
			if !ok {
				utils.Fail(c, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
				return
			}
		}
		c.Next()
	}
}

// peekEmail reads the email from a JSON body and restores the body for the
// handler.
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}
