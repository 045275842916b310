package bypass

import (
	"context"
	"fmt"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/LeadFlux/AbuseGate/pkg/domain/bypassattempt"
	"github.com/LeadFlux/AbuseGate/pkg/metrics"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/avct/uasurfer"
	"github.com/sirupsen/logrus"
)

// Analysis is the outcome of one bypass inspection. The multiplier is folded
// into the limiter's effective max by the caller; the detector itself never
// gates requests.
type Analysis struct {
	BypassAttempted   bool                   `json:"bypass_attempted"`
	BypassType        bypassattempt.Type     `json:"bypass_type,omitempty"`
	PenaltyMultiplier float64                `json:"penalty_multiplier"`
	Evidence          map[string]interface{} `json:"evidence,omitempty"`
}

const (
	penaltyHeaderManipulation = 3.0
	penaltyRotation           = 2.0

	autoBlockTTL = 1 * time.Hour
)

// Detector inspects header sets and identifier cardinality over time to flag
// active evasion.
type Detector struct {
	cache        *cache.Cache
	attempts     bypassattempt.Repository
	blockRules   blockrule.Repository
	logger       *logrus.Logger
	cfg          config.BypassConfig
	timeProvider func() time.Time
}

func NewDetector(
	logger *logrus.Logger,
	c *cache.Cache,
	attempts bypassattempt.Repository,
	blockRules blockrule.Repository,
	cfg config.BypassConfig,
) *Detector {
	return &Detector{
		cache:        c,
		attempts:     attempts,
		blockRules:   blockRules,
		logger:       logger,
		cfg:          cfg,
		timeProvider: time.Now,
	}
}

// AnalyzeRequest runs the checks in escalating-confidence order; the first
// positive match determines the bypass type.
func (d *Detector) AnalyzeRequest(ctx context.Context, userCtx *types.UserContext, headers types.Headers) *Analysis {
	identifier := userCtx.Identifier()

	if evidence := detectHeaderManipulation(headers); evidence != nil {
		return d.flag(ctx, userCtx, bypassattempt.TypeHeaderManipulation, types.SeverityHigh, 90,
			penaltyHeaderManipulation, evidence)
	}

	if evidence := d.detectIPRotation(ctx, identifier, userCtx); evidence != nil {
		return d.flag(ctx, userCtx, bypassattempt.TypeIPRotation, types.SeverityMedium, 75,
			penaltyRotation, evidence)
	}

	if evidence := d.detectUserAgentRotation(ctx, identifier, userCtx); evidence != nil {
		return d.flag(ctx, userCtx, bypassattempt.TypeUserAgentRotation, types.SeverityMedium, 70,
			penaltyRotation, evidence)
	}

	return &Analysis{PenaltyMultiplier: 1.0}
}

// detectHeaderManipulation checks for the honeypot header and for mutually
// inconsistent client-IP headers.
func detectHeaderManipulation(headers types.Headers) map[string]interface{} {
	if headers.Has(types.HeaderHoneypot) {
		return map[string]interface{}{
			"honeypot_header": types.HeaderHoneypot,
		}
	}

	claims := map[string]string{}
	if v := headers.ForwardedFor(); v != "" {
		claims[types.HeaderForwardedFor] = v
	}
	if v := headers.RealIP(); v != "" {
		claims[types.HeaderRealIP] = v
	}
	if v := headers.ClientIP(); v != "" {
		claims[types.HeaderClientIP] = v
	}
	if v := headers.TrueClientIP(); v != "" {
		claims[types.HeaderTrueClientIP] = v
	}

	distinct := map[string]struct{}{}
	for _, ip := range claims {
		distinct[ip] = struct{}{}
	}
	if len(distinct) > 1 {
		return map[string]interface{}{
			"conflicting_ip_headers": claims,
		}
	}
	return nil
}

// detectIPRotation tracks how many distinct source IPs an authenticated
// identifier has presented inside the tracking window.
func (d *Detector) detectIPRotation(ctx context.Context, identifier string, userCtx *types.UserContext) map[string]interface{} {
	if !userCtx.Authenticated || userCtx.IPAddress == "" {
		return nil
	}
	count, err := d.trackCardinality(ctx, fmt.Sprintf(cache.RotationIPKeyPattern, identifier), userCtx.IPAddress)
	if err != nil {
		d.logger.WithError(err).Debug("ip rotation tracking unavailable")
		metrics.StoreFailures.WithLabelValues("bypass").Inc()
		return nil
	}
	if count <= int64(d.cfg.MaxIPsPerIdentifier) {
		return nil
	}
	return map[string]interface{}{
		"distinct_ips": count,
		"window":       common.RotationTrackingWindow.String(),
	}
}

func (d *Detector) detectUserAgentRotation(ctx context.Context, identifier string, userCtx *types.UserContext) map[string]interface{} {
	if userCtx.UserAgent == "" {
		return nil
	}
	count, err := d.trackCardinality(ctx, fmt.Sprintf(cache.RotationUAKeyPattern, identifier), userCtx.UserAgent)
	if err != nil {
		d.logger.WithError(err).Debug("user agent rotation tracking unavailable")
		metrics.StoreFailures.WithLabelValues("bypass").Inc()
		return nil
	}
	if count <= int64(d.cfg.MaxUserAgents) {
		return nil
	}
	return map[string]interface{}{
		"distinct_user_agents": count,
		"window":               common.RotationTrackingWindow.String(),
		"device_class":         deviceClass(userCtx.UserAgent),
	}
}

// trackCardinality adds the value to the identifier's rotation set and
// returns the set size. The whole set shares one rolling TTL.
func (d *Detector) trackCardinality(ctx context.Context, key, value string) (int64, error) {
	pipe := d.cache.Client().TxPipeline()
	pipe.SAdd(ctx, key, value)
	cardCmd := pipe.SCard(ctx, key)
	pipe.Expire(ctx, key, common.RotationTrackingWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cardCmd.Val(), nil
}

func (d *Detector) flag(
	ctx context.Context,
	userCtx *types.UserContext,
	attemptType bypassattempt.Type,
	severity types.Severity,
	confidence int,
	penalty float64,
	evidence map[string]interface{},
) *Analysis {
	metrics.BypassDetections.WithLabelValues(string(attemptType)).Inc()

	blocked := false
	if severity.AtLeast(types.SeverityHigh) {
		blocked = d.autoBlock(ctx, userCtx, attemptType)
	}

	attempt := &bypassattempt.Attempt{
		Type:         attemptType,
		Identifier:   userCtx.Identifier(),
		IPAddress:    userCtx.IPAddress,
		Severity:     severity,
		Confidence:   confidence,
		Evidence:     domain.EvidenceJSON(evidence),
		Blocked:      blocked,
		LastDetected: d.timeProvider(),
	}
	if err := d.attempts.Save(ctx, attempt); err != nil {
		d.logger.WithError(err).WithField("type", attemptType).
			Warn("failed to persist bypass attempt")
	}

	return &Analysis{
		BypassAttempted:   true,
		BypassType:        attemptType,
		PenaltyMultiplier: penalty,
		Evidence:          evidence,
	}
}

// autoBlock creates a temporary blocking rule for high-severity attempts.
func (d *Detector) autoBlock(ctx context.Context, userCtx *types.UserContext, attemptType bypassattempt.Type) bool {
	if d.blockRules == nil || userCtx.IPAddress == "" {
		return false
	}
	expires := d.timeProvider().Add(autoBlockTTL)
	rule := &blockrule.Rule{
		Target:      blockrule.TargetIP,
		Value:       userCtx.IPAddress,
		Reason:      fmt.Sprintf("auto-blocked after %s detection", attemptType),
		ExpiresAt:   &expires,
		AutoBlocked: true,
	}
	if err := d.blockRules.Save(ctx, rule); err != nil {
		d.logger.WithError(err).Warn("failed to create auto-block rule")
		return false
	}
	return true
}

func deviceClass(ua string) string {
	switch uasurfer.Parse(ua).DeviceType {
	case uasurfer.DeviceComputer:
		return "computer"
	case uasurfer.DeviceTablet:
		return "tablet"
	case uasurfer.DevicePhone:
		return "phone"
	case uasurfer.DeviceConsole:
		return "console"
	case uasurfer.DeviceWearable:
		return "wearable"
	case uasurfer.DeviceTV:
		return "tv"
	default:
		return "unknown"
	}
}
