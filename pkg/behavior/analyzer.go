package behavior

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/metrics"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is one observed request, appended to the identifier's rolling window.
type Event struct {
	Nonce          string        `json:"nonce"`
	IPAddress      string        `json:"ip_address"`
	Timestamp      time.Time     `json:"timestamp"`
	Endpoint       string        `json:"endpoint"`
	Method         string        `json:"method"`
	ResponseStatus int           `json:"response_status"`
	ResponseTime   time.Duration `json:"response_time"`
	UserAgent      string        `json:"user_agent,omitempty"`
}

// Analyzer records request events per identifier and derives a composite
// behavior score from the recent window. Events live in the shared store with
// rolling retention; scores are cached with a short TTL and recomputed when
// stale.
type Analyzer struct {
	cache        *cache.Cache
	localScores  *cache.TTLMap
	logger       *logrus.Logger
	cfg          config.BehaviorConfig
	timeProvider func() time.Time
	uuidProvider func() uuid.UUID
}

type Options struct {
	TimeProvider func() time.Time
	UUIDProvider func() uuid.UUID
}

func NewAnalyzer(logger *logrus.Logger, c *cache.Cache, cfg config.BehaviorConfig, opts *Options) *Analyzer {
	a := &Analyzer{
		cache:        c,
		localScores:  c.CreateTTLMap(cache.BehaviorScoreTTLName, common.BehaviorScoreCacheTTL),
		logger:       logger,
		cfg:          cfg,
		timeProvider: time.Now,
		uuidProvider: uuid.New,
	}
	if opts != nil {
		if opts.TimeProvider != nil {
			a.timeProvider = opts.TimeProvider
		}
		if opts.UUIDProvider != nil {
			a.uuidProvider = opts.UUIDProvider
		}
	}
	return a
}

// RecordEvent appends the event to the identifier's time-ordered window and
// refreshes retention. Errors are logged, never surfaced: recording is off
// the critical path and tolerates loss.
func (a *Analyzer) RecordEvent(ctx context.Context, identifier string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = a.timeProvider()
	}
	event.Nonce = a.uuidProvider().String()

	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.WithError(err).Warn("failed to marshal behavior event")
		return
	}

	key := fmt.Sprintf(cache.BehaviorEventsPattern, identifier)
	windowStart := event.Timestamp.Add(-common.BehaviorRetentionWindow).UnixMilli()

	pipe := a.cache.Client().TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(event.Timestamp.UnixMilli()), Member: string(payload)})
	pipe.Expire(ctx, key, common.BehaviorRetentionWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		a.logger.WithError(err).WithField("identifier", identifier).
			Debug("failed to record behavior event")
		metrics.StoreFailures.WithLabelValues("behavior").Inc()
	}

	// A fresh event invalidates the cached score lazily via its short TTL;
	// no explicit invalidation needed.
}

// Window loads the identifier's current event window, newest last, capped at
// the configured maximum.
func (a *Analyzer) Window(ctx context.Context, identifier string) ([]Event, error) {
	key := fmt.Sprintf(cache.BehaviorEventsPattern, identifier)
	now := a.timeProvider()
	windowStart := now.Add(-common.BehaviorRetentionWindow).UnixMilli()

	members, err := a.cache.Client().ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(windowStart, 10),
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load behavior window: %w", err)
	}

	events := make([]Event, 0, len(members))
	for _, member := range members {
		var event Event
		if err := json.Unmarshal([]byte(member), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if max := a.cfg.MaxWindowEvents; max > 0 && len(events) > max {
		events = events[len(events)-max:]
	}
	return events, nil
}

// AnalyzeWindow runs every detector over the identifier's current window.
// Findings are independent; several may fire for the same window.
func (a *Analyzer) AnalyzeWindow(ctx context.Context, identifier string) ([]Finding, error) {
	events, err := a.Window(ctx, identifier)
	if err != nil {
		return nil, err
	}
	findings := runDetectors(events, a.cfg)
	for _, f := range findings {
		metrics.BehaviorFindings.WithLabelValues(string(f.Type)).Inc()
	}
	return findings, nil
}

// Score returns the cached composite score for the request's identifier,
// recomputing it from the window when stale. Unseen identifiers score clean:
// a new actor is innocent until its pattern accumulates.
func (a *Analyzer) Score(ctx context.Context, userCtx *types.UserContext) *Score {
	identifier := userCtx.Identifier()

	if value, ok := a.localScores.Get(identifier); ok {
		if score, ok := value.(*Score); ok {
			return score
		}
	}

	findings, err := a.AnalyzeWindow(ctx, identifier)
	if err != nil {
		a.logger.WithError(err).WithField("identifier", identifier).
			Debug("behavior analysis unavailable, scoring clean")
		return CleanScore()
	}

	score := Compose(findings)
	a.localScores.Set(identifier, score)
	return score
}
