package bypass_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/bypass"
	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/LeadFlux/AbuseGate/pkg/domain/bypassattempt"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttemptRepository struct {
	saved []bypassattempt.Attempt
	list  []bypassattempt.Attempt
	err   error
}

func (r *fakeAttemptRepository) Save(ctx context.Context, attempt *bypassattempt.Attempt) error {
	r.saved = append(r.saved, *attempt)
	return r.err
}

func (r *fakeAttemptRepository) List(ctx context.Context, attemptType bypassattempt.Type) ([]bypassattempt.Attempt, error) {
	if attemptType == "" {
		return r.list, r.err
	}
	var filtered []bypassattempt.Attempt
	for _, a := range r.list {
		if a.Type == attemptType {
			filtered = append(filtered, a)
		}
	}
	return filtered, r.err
}

func (r *fakeAttemptRepository) ListSince(ctx context.Context, since time.Time) ([]bypassattempt.Attempt, error) {
	return r.list, r.err
}

type fakeBlockRuleRepository struct {
	saved []blockrule.Rule
	err   error
}

func (r *fakeBlockRuleRepository) Save(ctx context.Context, rule *blockrule.Rule) error {
	r.saved = append(r.saved, *rule)
	return r.err
}

func (r *fakeBlockRuleRepository) FindByValue(ctx context.Context, target blockrule.Target, value string) (*blockrule.Rule, error) {
	return nil, nil
}
func (r *fakeBlockRuleRepository) List(ctx context.Context) ([]blockrule.Rule, error) {
	return r.saved, nil
}
func (r *fakeBlockRuleRepository) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (r *fakeBlockRuleRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

var testBypassCfg = config.BypassConfig{
	MaxIPsPerIdentifier: 5,
	MaxUserAgents:       10,
}

func newTestDetector() (*bypass.Detector, redismock.ClientMock, *fakeAttemptRepository, *fakeBlockRuleRepository) {
	redisClient, mock := redismock.NewClientMock()
	attempts := &fakeAttemptRepository{}
	blockRules := &fakeBlockRuleRepository{}
	detector := bypass.NewDetector(logrus.New(), cache.NewCacheWithClient(redisClient), attempts, blockRules, testBypassCfg)
	return detector, mock, attempts, blockRules
}

func expectCardinality(mock redismock.ClientMock, key, value string, count int64) {
	mock.ExpectTxPipeline()
	mock.ExpectSAdd(key, value).SetVal(1)
	mock.ExpectSCard(key).SetVal(count)
	mock.ExpectExpire(key, common.RotationTrackingWindow).SetVal(true)
	mock.ExpectTxPipelineExec()
}

func TestDetector_HoneypotHeader(t *testing.T) {
	detector, _, attempts, blockRules := newTestDetector()

	headers := types.NewHeaders(map[string][]string{
		"X-Abusegate-Token": {"anything"},
	})
	userCtx := &types.UserContext{IPAddress: "203.0.113.9"}

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, headers)

	assert.True(t, analysis.BypassAttempted)
	assert.Equal(t, bypassattempt.TypeHeaderManipulation, analysis.BypassType)
	assert.Equal(t, 3.0, analysis.PenaltyMultiplier)

	require.Len(t, attempts.saved, 1)
	assert.Equal(t, types.SeverityHigh, attempts.saved[0].Severity)
	assert.True(t, attempts.saved[0].Blocked)

	// high severity auto-blocks the source IP with an expiry
	require.Len(t, blockRules.saved, 1)
	assert.Equal(t, blockrule.TargetIP, blockRules.saved[0].Target)
	assert.Equal(t, "203.0.113.9", blockRules.saved[0].Value)
	assert.True(t, blockRules.saved[0].AutoBlocked)
	assert.NotNil(t, blockRules.saved[0].ExpiresAt)
}

func TestDetector_ConflictingIPHeaders(t *testing.T) {
	detector, _, attempts, _ := newTestDetector()

	headers := types.NewHeaders(map[string][]string{
		"X-Forwarded-For": {"198.51.100.1, 10.0.0.1"},
		"X-Real-Ip":       {"203.0.113.50"},
	})
	userCtx := &types.UserContext{IPAddress: "203.0.113.9"}

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, headers)

	assert.True(t, analysis.BypassAttempted)
	assert.Equal(t, bypassattempt.TypeHeaderManipulation, analysis.BypassType)
	assert.Greater(t, analysis.PenaltyMultiplier, 1.0)
	assert.Contains(t, analysis.Evidence, "conflicting_ip_headers")
	require.Len(t, attempts.saved, 1)
}

func TestDetector_ConsistentIPHeadersAreClean(t *testing.T) {
	detector, mock, attempts, _ := newTestDetector()

	headers := types.NewHeaders(map[string][]string{
		"X-Forwarded-For": {"198.51.100.1"},
		"X-Real-Ip":       {"198.51.100.1"},
	})
	userCtx := &types.UserContext{
		Authenticated: true,
		UserID:        "u-1",
		IPAddress:     "198.51.100.1",
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	}

	expectCardinality(mock, fmt.Sprintf(cache.RotationIPKeyPattern, "user:u-1"), "198.51.100.1", 1)
	expectCardinality(mock, fmt.Sprintf(cache.RotationUAKeyPattern, "user:u-1"), userCtx.UserAgent, 1)

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, headers)

	assert.False(t, analysis.BypassAttempted)
	assert.Equal(t, 1.0, analysis.PenaltyMultiplier)
	assert.Empty(t, attempts.saved)
}

func TestDetector_IPRotation(t *testing.T) {
	detector, mock, attempts, blockRules := newTestDetector()

	userCtx := &types.UserContext{
		Authenticated: true,
		UserID:        "u-1",
		IPAddress:     "203.0.113.6",
	}
	// sixth distinct IP crosses the limit of five
	expectCardinality(mock, fmt.Sprintf(cache.RotationIPKeyPattern, "user:u-1"), "203.0.113.6", 6)

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, types.NewHeaders(nil))

	assert.True(t, analysis.BypassAttempted)
	assert.Equal(t, bypassattempt.TypeIPRotation, analysis.BypassType)
	assert.Equal(t, 2.0, analysis.PenaltyMultiplier)
	assert.Equal(t, int64(6), analysis.Evidence["distinct_ips"])

	require.Len(t, attempts.saved, 1)
	assert.Equal(t, types.SeverityMedium, attempts.saved[0].Severity)
	assert.False(t, attempts.saved[0].Blocked)
	assert.Empty(t, blockRules.saved, "medium severity never auto-blocks")
}

func TestDetector_IPRotationIgnoresAnonymous(t *testing.T) {
	detector, _, attempts, _ := newTestDetector()

	// anonymous identifiers key on the IP itself, so rotation is meaningless
	userCtx := &types.UserContext{IPAddress: "203.0.113.6"}

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, types.NewHeaders(nil))

	assert.False(t, analysis.BypassAttempted)
	assert.Empty(t, attempts.saved)
}

func TestDetector_UserAgentRotation(t *testing.T) {
	detector, mock, attempts, _ := newTestDetector()

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
	userCtx := &types.UserContext{
		Authenticated: true,
		UserID:        "u-1",
		IPAddress:     "203.0.113.9",
		UserAgent:     ua,
	}
	expectCardinality(mock, fmt.Sprintf(cache.RotationIPKeyPattern, "user:u-1"), "203.0.113.9", 1)
	expectCardinality(mock, fmt.Sprintf(cache.RotationUAKeyPattern, "user:u-1"), ua, 11)

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, types.NewHeaders(nil))

	assert.True(t, analysis.BypassAttempted)
	assert.Equal(t, bypassattempt.TypeUserAgentRotation, analysis.BypassType)
	assert.Equal(t, "phone", analysis.Evidence["device_class"])
	require.Len(t, attempts.saved, 1)
}

func TestDetector_StoreFailureIsClean(t *testing.T) {
	detector, _, attempts, _ := newTestDetector()

	// no pipeline expectations set, so cardinality tracking errors out
	userCtx := &types.UserContext{
		Authenticated: true,
		UserID:        "u-1",
		IPAddress:     "203.0.113.9",
		UserAgent:     "curl/8.0",
	}

	analysis := detector.AnalyzeRequest(context.Background(), userCtx, types.NewHeaders(nil))

	assert.False(t, analysis.BypassAttempted)
	assert.Equal(t, 1.0, analysis.PenaltyMultiplier)
	assert.Empty(t, attempts.saved)
}

func TestDetector_StatsForPeriod(t *testing.T) {
	detector, _, attempts, _ := newTestDetector()
	attempts.list = []bypassattempt.Attempt{
		{Type: bypassattempt.TypeHeaderManipulation, Blocked: true},
		{Type: bypassattempt.TypeHeaderManipulation, Blocked: true},
		{Type: bypassattempt.TypeIPRotation, Evidence: domain.EvidenceJSON{"distinct_ips": float64(8), "window": "1h0m0s"}},
		{Type: bypassattempt.TypeIPRotation, Evidence: domain.EvidenceJSON{"distinct_ips": float64(6), "window": "1h0m0s"}},
		{Type: bypassattempt.TypeUserAgentRotation, Evidence: domain.EvidenceJSON{"distinct_user_agents": float64(12), "device_class": "desktop"}},
	}

	stats, err := detector.StatsForPeriod(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalAttempts)
	assert.Equal(t, 2, stats.AttemptsByType[bypassattempt.TypeHeaderManipulation])
	assert.Equal(t, 2, stats.AttemptsByType[bypassattempt.TypeIPRotation])
	assert.Equal(t, 0.4, stats.MitigationEffectiveness)
	assert.Equal(t, int64(8), stats.PeakDistinctIPs)
	assert.Equal(t, int64(12), stats.PeakDistinctUserAgents)
}

func TestDetector_StatsForPeriod_Empty(t *testing.T) {
	detector, _, _, _ := newTestDetector()

	stats, err := detector.StatsForPeriod(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAttempts)
	assert.Zero(t, stats.MitigationEffectiveness)
}
