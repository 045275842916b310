package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision counters for every engine verdict. Labels stay low-cardinality:
// roles, decision kinds and detector names only, never identifiers.
var (
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abusegate_rate_limit_decisions_total",
		Help: "Rate limit decisions by role and outcome.",
	}, []string{"role", "allowed"})

	GeoBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abusegate_geo_blocks_total",
		Help: "Requests blocked by geographic rules, by country.",
	}, []string{"country"})

	BypassDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abusegate_bypass_detections_total",
		Help: "Detected bypass attempts by type.",
	}, []string{"type"})

	CaptchaChallenges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abusegate_captcha_challenges_total",
		Help: "Captcha challenges by lifecycle event.",
	}, []string{"event"})

	BehaviorFindings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abusegate_behavior_findings_total",
		Help: "Behavioral findings by detector.",
	}, []string{"detector"})

	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abusegate_store_failures_total",
		Help: "Counter store failures that triggered fail-open handling.",
	}, []string{"component"})

	DecisionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "abusegate_decision_duration_seconds",
		Help:    "End-to-end decision latency per engine.",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine"})
)
