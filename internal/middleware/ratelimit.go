package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/pkg/clientip"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	RateLimitKeyPrefix = "ratelimit:"
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding the limit.
	BlockedIPDuration = 15 * time.Minute
)

// RateStore counts requests per key in fixed windows.
type RateStore interface {
	// Hit increments the counter for key and returns the new count.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	IsBlocked(ctx context.Context, ip string) (bool, error)
	Block(ctx context.Context, ip string, d time.Duration) error
	Unblock(ctx context.Context, ip string) error
}

type RedisRateStore struct {
	rdb *redis.Client
}

func NewRedisRateStore(rdb *redis.Client) *RedisRateStore {
	return &RedisRateStore{rdb: rdb}
}

func (s *RedisRateStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := s.rdb.Incr(ctx, RateLimitKeyPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	// The first hit opens the window.
	if n == 1 {
		if err := s.rdb.Expire(ctx, RateLimitKeyPrefix+key, window).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (s *RedisRateStore) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := s.rdb.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	return n > 0, err
}

func (s *RedisRateStore) Block(ctx context.Context, ip string, d time.Duration) error {
	return s.rdb.Set(ctx, BlockedIPKeyPrefix+ip, "1", d).Err()
}

// Unblock removes an IP from the blocked list.
func (s *RedisRateStore) Unblock(ctx context.Context, ip string) error {
	return s.rdb.Del(ctx, BlockedIPKeyPrefix+ip).Err()
}

// RateLimit allows limit requests per client IP per window. An IP that goes
// over is blocked for BlockedIPDuration. Store failures let the request
// through.
func RateLimit(store RateStore, window time.Duration, limit int, trustProxy bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqLog := logger.WithContext(ctx, log)
			ip := clientip.RealClientIP(r, trustProxy)

			blocked, err := store.IsBlocked(ctx, ip)
			if err != nil {
				reqLog.Warn("rate limit store unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if blocked {
				w.Header().Set("Retry-After", strconv.Itoa(int(BlockedIPDuration.Seconds())))
				response.Error(w, reqLog, apperror.New(apperror.TooManyRequests,
					"Your IP has been temporarily blocked due to excessive requests. Please try again later."))
				return
			}

			count, err := store.Hit(ctx, ip, window)
			if err != nil {
				reqLog.Warn("rate limit store unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				if err := store.Block(ctx, ip, BlockedIPDuration); err != nil {
					reqLog.Warn("failed to block ip", zap.Error(err))
				}
				reqLog.Info("rate limit exceeded", zap.String("ip", ip), zap.Int64("count", count))
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.Error(w, reqLog, apperror.New(apperror.TooManyRequests,
					"Too many requests from this IP, please try again later."))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-count, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}
