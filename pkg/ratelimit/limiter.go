package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/metrics"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config is the limit applied to one identifier: at most MaxRequests events
// inside a sliding Window.
type Config struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// WithPenalty shrinks the effective limit by the bypass detector's penalty
// multiplier. The floor of 1 keeps a penalized identifier observable instead
// of silently unlimited-by-zero.
func (c Config) WithPenalty(multiplier float64) Config {
	if multiplier <= 1 {
		return c
	}
	adjusted := int(math.Floor(float64(c.MaxRequests) / multiplier))
	if adjusted < 1 {
		adjusted = 1
	}
	return Config{Window: c.Window, MaxRequests: adjusted}
}

// Result is computed fresh on every check and never cached.
type Result struct {
	Allowed       bool      `json:"allowed"`
	Remaining     int       `json:"remaining"`
	ResetTime     time.Time `json:"reset_time"`
	RetryAfter    int       `json:"retry_after,omitempty"`
	TotalRequests int64     `json:"total_requests"`
}

// KeyFunc resolves the identifier a request is limited under. The default
// keys authenticated actors by user id and everyone else by IP; callers may
// substitute composite keys.
type KeyFunc func(userCtx *types.UserContext) string

func DefaultKeyFunc(userCtx *types.UserContext) string {
	return userCtx.Identifier()
}

type Options struct {
	KeyFunc      KeyFunc
	TimeProvider func() time.Time
	UUIDProvider func() uuid.UUID
}

// Limiter answers allow/deny using sliding-window counters in the shared
// store. On store failure it fails open: availability is prioritized over
// strict enforcement for a public funnel.
type Limiter struct {
	cache             *cache.Cache
	logger            *logrus.Logger
	keyFunc           KeyFunc
	failOpenRemaining int
	timeProvider      func() time.Time
	uuidProvider      func() uuid.UUID
}

func NewLimiter(logger *logrus.Logger, c *cache.Cache, cfg config.RateLimitConfig, opts *Options) *Limiter {
	fo := cfg.FailOpenRemaining
	if fo <= 0 {
		fo = 1
	}
	l := &Limiter{
		cache:             c,
		logger:            logger,
		keyFunc:           DefaultKeyFunc,
		failOpenRemaining: fo,
		timeProvider:      time.Now,
		uuidProvider:      uuid.New,
	}
	if opts != nil {
		if opts.KeyFunc != nil {
			l.keyFunc = opts.KeyFunc
		}
		if opts.TimeProvider != nil {
			l.timeProvider = opts.TimeProvider
		}
		if opts.UUIDProvider != nil {
			l.uuidProvider = opts.UUIDProvider
		}
	}
	return l
}

// KeyFor applies the configured key function.
func (l *Limiter) KeyFor(userCtx *types.UserContext) string {
	return l.keyFunc(userCtx)
}

// CheckLimit runs one sliding-window admission check for the identifier.
//
// The purge, insert and count run inside a single MULTI/EXEC batch, so two
// concurrent requests for the same identifier are serialized by the store and
// can never both observe a stale count at the limit boundary. The request's
// own entry is added optimistically; on denial it is removed again so denied
// traffic neither consumes budget nor extends the window.
func (l *Limiter) CheckLimit(ctx context.Context, identifier string, cfg Config, userCtx *types.UserContext) *Result {
	now := l.timeProvider()
	key := fmt.Sprintf(cache.RateLimitKeyPattern, identifier)
	windowStart := now.Add(-cfg.Window).UnixMilli()
	member := fmt.Sprintf("%d:%s", now.UnixMilli(), l.uuidProvider().String())

	pipe := l.cache.Client().TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixMilli()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, cfg.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(identifier, cfg, now, err)
	}

	countAfter := countCmd.Val()
	allowed := countAfter <= int64(cfg.MaxRequests)

	if !allowed {
		if err := l.cache.Client().ZRem(ctx, key, member).Err(); err != nil {
			l.logger.WithError(err).WithField("identifier", identifier).
				Warn("failed to roll back denied rate limit entry")
		}
		countAfter--
	}

	remaining := cfg.MaxRequests - int(countAfter)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:       allowed,
		Remaining:     remaining,
		ResetTime:     now.Add(cfg.Window),
		TotalRequests: countAfter,
	}
	if !allowed {
		result.RetryAfter = retryAfterSeconds(cfg.Window)
	}

	if userCtx != nil {
		metrics.RateLimitDecisions.WithLabelValues(string(userCtx.Role), strconv.FormatBool(allowed)).Inc()
	}
	return result
}

func (l *Limiter) failOpen(identifier string, cfg Config, now time.Time, err error) *Result {
	l.logger.WithError(err).WithField("identifier", identifier).
		Warn("counter store unavailable, failing open")
	metrics.StoreFailures.WithLabelValues("rate_limiter").Inc()

	// Conservative remaining: signal near-exhaustion so well-behaved clients
	// back off while the store recovers.
	return &Result{
		Allowed:       true,
		Remaining:     l.failOpenRemaining,
		ResetTime:     now.Add(cfg.Window),
		TotalRequests: 0,
	}
}

func retryAfterSeconds(window time.Duration) int {
	secs := int(math.Ceil(window.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
