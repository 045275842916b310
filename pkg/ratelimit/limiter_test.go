package ratelimit_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, countAfter int64, window time.Duration) (*ratelimit.Limiter, redismock.ClientMock, time.Time, string) {
	t.Helper()

	redisClient, mock := redismock.NewClientMock()
	fixedTime := time.Unix(1740730536, 0)
	uid := uuid.New()

	key := fmt.Sprintf(cache.RateLimitKeyPattern, "ip:127.0.0.1")
	windowStart := fixedTime.Add(-window).UnixMilli()
	member := fmt.Sprintf("%d:%s", fixedTime.UnixMilli(), uid.String())

	mock.ExpectTxPipeline()
	mock.ExpectZRemRangeByScore(key, "0", strconv.FormatInt(windowStart, 10)).SetVal(0)
	mock.ExpectZAdd(key, &redis.Z{Score: float64(fixedTime.UnixMilli()), Member: member}).SetVal(1)
	mock.ExpectZCard(key).SetVal(countAfter)
	mock.ExpectExpire(key, window).SetVal(true)
	mock.ExpectTxPipelineExec()

	limiter := ratelimit.NewLimiter(logrus.New(), cache.NewCacheWithClient(redisClient), config.RateLimitConfig{}, &ratelimit.Options{
		TimeProvider: func() time.Time { return fixedTime },
		UUIDProvider: func() uuid.UUID { return uid },
	})
	return limiter, mock, fixedTime, member
}

func TestLimiter_CheckLimit_Allowed(t *testing.T) {
	window := time.Minute
	limiter, mock, fixedTime, _ := newTestLimiter(t, 5, window)

	cfg := ratelimit.Config{Window: window, MaxRequests: 10}
	result := limiter.CheckLimit(context.Background(), "ip:127.0.0.1", cfg, &types.UserContext{Role: types.RoleAnonymous})

	assert.True(t, result.Allowed)
	assert.Equal(t, 5, result.Remaining)
	assert.Equal(t, int64(5), result.TotalRequests)
	assert.Equal(t, fixedTime.Add(window), result.ResetTime)
	assert.Zero(t, result.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_CheckLimit_FreshWindow(t *testing.T) {
	// once the purge removed every stale entry the new request is the only
	// one counted
	window := time.Minute
	limiter, mock, _, _ := newTestLimiter(t, 1, window)

	cfg := ratelimit.Config{Window: window, MaxRequests: 10}
	result := limiter.CheckLimit(context.Background(), "ip:127.0.0.1", cfg, nil)

	assert.True(t, result.Allowed)
	assert.Equal(t, 9, result.Remaining)
	assert.Equal(t, int64(1), result.TotalRequests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_CheckLimit_ExactlyAtLimit(t *testing.T) {
	window := time.Minute
	limiter, mock, _, _ := newTestLimiter(t, 10, window)

	cfg := ratelimit.Config{Window: window, MaxRequests: 10}
	result := limiter.CheckLimit(context.Background(), "ip:127.0.0.1", cfg, nil)

	assert.True(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_CheckLimit_Denied(t *testing.T) {
	window := time.Minute
	limiter, mock, _, member := newTestLimiter(t, 11, window)

	key := fmt.Sprintf(cache.RateLimitKeyPattern, "ip:127.0.0.1")
	mock.ExpectZRem(key, member).SetVal(1)

	cfg := ratelimit.Config{Window: window, MaxRequests: 10}
	result := limiter.CheckLimit(context.Background(), "ip:127.0.0.1", cfg, nil)

	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, int64(10), result.TotalRequests)
	assert.Equal(t, 60, result.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_CheckLimit_FailsOpenOnStoreError(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	fixedTime := time.Unix(1740730536, 0)

	key := fmt.Sprintf(cache.RateLimitKeyPattern, "ip:127.0.0.1")
	window := time.Minute
	windowStart := fixedTime.Add(-window).UnixMilli()

	mock.ExpectTxPipeline()
	mock.ExpectZRemRangeByScore(key, "0", strconv.FormatInt(windowStart, 10)).
		SetErr(fmt.Errorf("connection refused"))

	// the fail-open allowance comes from configuration, not a constant
	limiter := ratelimit.NewLimiter(logrus.New(), cache.NewCacheWithClient(redisClient), config.RateLimitConfig{FailOpenRemaining: 3}, &ratelimit.Options{
		TimeProvider: func() time.Time { return fixedTime },
	})

	cfg := ratelimit.Config{Window: window, MaxRequests: 10}
	result := limiter.CheckLimit(context.Background(), "ip:127.0.0.1", cfg, nil)

	assert.True(t, result.Allowed)
	assert.Equal(t, 3, result.Remaining)
}

func TestLimiter_CheckLimit_FailOpenRemainingDefaultsToOne(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	fixedTime := time.Unix(1740730536, 0)

	key := fmt.Sprintf(cache.RateLimitKeyPattern, "ip:127.0.0.1")
	window := time.Minute
	windowStart := fixedTime.Add(-window).UnixMilli()

	mock.ExpectTxPipeline()
	mock.ExpectZRemRangeByScore(key, "0", strconv.FormatInt(windowStart, 10)).
		SetErr(fmt.Errorf("connection refused"))

	limiter := ratelimit.NewLimiter(logrus.New(), cache.NewCacheWithClient(redisClient), config.RateLimitConfig{}, &ratelimit.Options{
		TimeProvider: func() time.Time { return fixedTime },
	})

	cfg := ratelimit.Config{Window: window, MaxRequests: 10}
	result := limiter.CheckLimit(context.Background(), "ip:127.0.0.1", cfg, nil)

	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestConfig_WithPenalty(t *testing.T) {
	cfg := ratelimit.Config{Window: time.Minute, MaxRequests: 60}

	assert.Equal(t, 60, cfg.WithPenalty(1.0).MaxRequests)
	assert.Equal(t, 20, cfg.WithPenalty(3.0).MaxRequests)
	assert.Equal(t, 30, cfg.WithPenalty(2.0).MaxRequests)
	assert.Equal(t, 60, cfg.WithPenalty(0).MaxRequests)

	// the effective limit never reaches zero
	small := ratelimit.Config{Window: time.Minute, MaxRequests: 2}
	assert.Equal(t, 1, small.WithPenalty(10.0).MaxRequests)
}

func TestDefaultKeyFunc(t *testing.T) {
	authed := &types.UserContext{Authenticated: true, UserID: "u-1", IPAddress: "10.0.0.1"}
	assert.Equal(t, "user:u-1", ratelimit.DefaultKeyFunc(authed))

	anon := &types.UserContext{IPAddress: "10.0.0.1"}
	assert.Equal(t, "ip:10.0.0.1", ratelimit.DefaultKeyFunc(anon))
}
