package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/behavior"
	"github.com/LeadFlux/AbuseGate/pkg/bypass"
	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/captcha"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/LeadFlux/AbuseGate/pkg/geo"
	"github.com/LeadFlux/AbuseGate/pkg/metrics"
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// GuardMiddleware sequences the engines per request:
// geo-block veto, then identifier resolution, bypass analysis, the
// penalty-adjusted rate-limit check, the captcha decision on denial, and
// finally asynchronous behavioral recording so the critical path never waits
// on it.
type guardMiddleware struct {
	logger     *logrus.Logger
	limiter    *ratelimit.Limiter
	tiers      *ratelimit.Tiers
	geoA       *geo.Analyzer
	behaviorA  *behavior.Analyzer
	captchaMgr *captcha.Manager
	detector   *bypass.Detector
	blockRules blockrule.Repository
	blockCache *cache.TTLMap
	jwtSecret  string
}

func NewGuardMiddleware(
	logger *logrus.Logger,
	limiter *ratelimit.Limiter,
	tiers *ratelimit.Tiers,
	geoAnalyzer *geo.Analyzer,
	behaviorAnalyzer *behavior.Analyzer,
	captchaManager *captcha.Manager,
	detector *bypass.Detector,
	blockRules blockrule.Repository,
	jwtSecret string,
) Middleware {
	return &guardMiddleware{
		logger:     logger,
		limiter:    limiter,
		tiers:      tiers,
		geoA:       geoAnalyzer,
		behaviorA:  behaviorAnalyzer,
		captchaMgr: captchaManager,
		detector:   detector,
		blockRules: blockRules,
		blockCache: cache.NewTTLMap(time.Minute),
		jwtSecret:  jwtSecret,
	}
}

func (m *guardMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		reqCtx := ctx.Context()

		userCtx := ResolveUserContext(ctx, m.jwtSecret, m.logger)

		// Geographic veto runs before everything else.
		if verdict := m.geoA.ShouldBlockIP(reqCtx, userCtx.IPAddress); verdict.Blocked {
			metrics.GeoBlocks.WithLabelValues(countryOf(m.geoA, reqCtx, userCtx)).Inc()
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":  "access denied",
				"reason": verdict.Reason,
				"ruleId": verdict.RuleID,
			})
		}
		location := m.geoA.AnalyzeIP(reqCtx, userCtx.IPAddress)
		userCtx.Country = location.CountryCode
		userCtx.City = location.City
		ctx.Locals(common.UserContextKey, userCtx)

		// Hard blocking rules are consulted before any rate-limit math.
		if m.isHardBlocked(reqCtx, userCtx.IPAddress) {
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":  "access denied",
				"reason": "address is blocked",
			})
		}

		headers := types.NewHeaders(ctx.GetReqHeaders())
		analysis := m.detector.AnalyzeRequest(reqCtx, userCtx, headers)
		ctx.Locals(common.PenaltyKey, analysis.PenaltyMultiplier)

		cfg := m.tiers.LimitFor(userCtx, ctx.Path()).WithPenalty(analysis.PenaltyMultiplier)
		identifier := m.limiter.KeyFor(userCtx)
		result := m.limiter.CheckLimit(reqCtx, identifier, cfg, userCtx)
		setRateLimitHeaders(ctx, cfg, result)

		if !result.Allowed {
			score := m.behaviorA.Score(reqCtx, userCtx)
			decision := m.captchaMgr.ShouldRequire(reqCtx, userCtx, score, int(result.TotalRequests))

			body := fiber.Map{
				"error":           "rate limit exceeded",
				"retryAfter":      result.RetryAfter,
				"requiresCaptcha": decision.Required,
			}
			if decision.Required {
				body["captchaType"] = string(decision.Difficulty)
			}
			m.recordEvent(userCtx, identifier, ctx.Path(), ctx.Method(), fiber.StatusTooManyRequests, time.Since(start))
			return ctx.Status(fiber.StatusTooManyRequests).JSON(body)
		}

		err := ctx.Next()

		// Recording happens after the decision so it never blocks the
		// critical path; analysis tolerates losing an event.
		m.recordEvent(userCtx, identifier, ctx.Path(), ctx.Method(), ctx.Response().StatusCode(), time.Since(start))
		metrics.DecisionLatency.WithLabelValues("guard").Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *guardMiddleware) isHardBlocked(ctx context.Context, ip string) bool {
	if m.blockRules == nil || ip == "" {
		return false
	}
	if cached, ok := m.blockCache.Get(ip); ok {
		blocked, _ := cached.(bool)
		return blocked
	}
	rule, err := m.blockRules.FindByValue(ctx, blockrule.TargetIP, ip)
	if err != nil {
		m.logger.WithError(err).Debug("block rule lookup failed, failing open")
		return false
	}
	blocked := rule != nil && !rule.Expired(time.Now())
	m.blockCache.Set(ip, blocked)
	return blocked
}

func (m *guardMiddleware) recordEvent(userCtx *types.UserContext, identifier, path, method string, status int, elapsed time.Duration) {
	event := behavior.Event{
		IPAddress:      userCtx.IPAddress,
		Timestamp:      time.Now(),
		Endpoint:       path,
		Method:         method,
		ResponseStatus: status,
		ResponseTime:   elapsed,
		UserAgent:      userCtx.UserAgent,
	}
	go func() {
		recordCtx, cancel := context.WithTimeout(context.Background(), common.ExternalCallTimeout)
		defer cancel()
		m.behaviorA.RecordEvent(recordCtx, identifier, event)
	}()
}

func setRateLimitHeaders(ctx *fiber.Ctx, cfg ratelimit.Config, result *ratelimit.Result) {
	ctx.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
	ctx.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	ctx.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.UnixMilli(), 10))
	if !result.Allowed {
		ctx.Set("Retry-After", strconv.Itoa(result.RetryAfter))
	}
}

func countryOf(analyzer *geo.Analyzer, ctx context.Context, userCtx *types.UserContext) string {
	loc := analyzer.AnalyzeIP(ctx, userCtx.IPAddress)
	if loc.CountryCode == "" {
		return "unknown"
	}
	return loc.CountryCode
}
