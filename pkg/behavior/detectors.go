package behavior

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/types"
)

type FindingType string

const (
	FindingBurst              FindingType = "burst_requests"
	FindingRegularIntervals   FindingType = "regular_intervals"
	FindingErrorFarming       FindingType = "error_farming"
	FindingEndpointScanning   FindingType = "endpoint_scanning"
	FindingCredentialStuffing FindingType = "credential_stuffing"
	FindingSessionAnomaly     FindingType = "session_anomaly"
)

// Finding is one detector's verdict over the window. Score is the risk
// contribution in [0,100].
type Finding struct {
	Type     FindingType    `json:"type"`
	Severity types.Severity `json:"severity"`
	Score    int            `json:"score"`
	Detail   string         `json:"detail"`
}

const (
	minIntervalSamples      = 10
	intervalVariationRatio  = 0.1
	minErrorSampleSize      = 10
	errorRateThreshold      = 0.6
	minScanSampleSize       = 15
	distinctEndpointMinimum = 12
	stuffingFailureMinimum  = 8
	distinctUserAgentLimit  = 3
)

// runDetectors applies every detector independently. Each emits zero or one
// finding; findings are non-exclusive.
func runDetectors(events []Event, cfg config.BehaviorConfig) []Finding {
	var findings []Finding
	if f := detectBurst(events, cfg.BurstThreshold, time.Duration(cfg.BurstWindowSec)*time.Second); f != nil {
		findings = append(findings, *f)
	}
	if f := detectRegularIntervals(events); f != nil {
		findings = append(findings, *f)
	}
	if f := detectErrorFarming(events); f != nil {
		findings = append(findings, *f)
	}
	if f := detectEndpointScanning(events); f != nil {
		findings = append(findings, *f)
	}
	if f := detectCredentialStuffing(events); f != nil {
		findings = append(findings, *f)
	}
	if f := detectSessionAnomaly(events); f != nil {
		findings = append(findings, *f)
	}
	return findings
}

// detectBurst fires when threshold events fall inside any burst-sized
// sub-window. Events arrive time-ordered, so a sliding pair of indices is
// enough.
func detectBurst(events []Event, threshold int, burstWindow time.Duration) *Finding {
	if threshold <= 0 || len(events) < threshold {
		return nil
	}
	for i := 0; i+threshold-1 < len(events); i++ {
		span := events[i+threshold-1].Timestamp.Sub(events[i].Timestamp)
		if span <= burstWindow {
			return &Finding{
				Type:     FindingBurst,
				Severity: types.SeverityMedium,
				Score:    70,
				Detail:   fmt.Sprintf("%d requests within %s", threshold, span.Round(time.Second)),
			}
		}
	}
	return nil
}

// detectRegularIntervals flags machine-like spacing: human traffic is
// irregular, scripted traffic is not.
func detectRegularIntervals(events []Event) *Finding {
	if len(events) < minIntervalSamples+1 {
		return nil
	}
	intervals := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		intervals = append(intervals, events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds())
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return nil
	}

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(variance / float64(len(intervals)-1))

	if stddev >= mean*intervalVariationRatio {
		return nil
	}
	return &Finding{
		Type:     FindingRegularIntervals,
		Severity: types.SeverityMedium,
		Score:    75,
		Detail:   fmt.Sprintf("inter-arrival stddev %.2fs against mean %.2fs", stddev, mean),
	}
}

func detectErrorFarming(events []Event) *Finding {
	if len(events) < minErrorSampleSize {
		return nil
	}
	errors := 0
	for _, e := range events {
		if e.ResponseStatus >= 400 && e.ResponseStatus < 500 {
			errors++
		}
	}
	rate := float64(errors) / float64(len(events))
	if rate <= errorRateThreshold {
		return nil
	}
	return &Finding{
		Type:     FindingErrorFarming,
		Severity: types.SeverityHigh,
		Score:    80,
		Detail:   fmt.Sprintf("%.0f%% of %d requests returned 4xx", rate*100, len(events)),
	}
}

func detectEndpointScanning(events []Event) *Finding {
	if len(events) < minScanSampleSize {
		return nil
	}
	distinct := make(map[string]struct{}, len(events))
	for _, e := range events {
		distinct[e.Endpoint] = struct{}{}
	}
	if len(distinct) < distinctEndpointMinimum {
		return nil
	}
	return &Finding{
		Type:     FindingEndpointScanning,
		Severity: types.SeverityMedium,
		Score:    65,
		Detail:   fmt.Sprintf("%d distinct endpoints across %d requests", len(distinct), len(events)),
	}
}

func detectCredentialStuffing(events []Event) *Finding {
	failures := 0
	for _, e := range events {
		if !isAuthEndpoint(e.Endpoint) {
			continue
		}
		if e.ResponseStatus == 401 || e.ResponseStatus == 403 {
			failures++
		}
	}
	if failures < stuffingFailureMinimum {
		return nil
	}
	return &Finding{
		Type:     FindingCredentialStuffing,
		Severity: types.SeverityHigh,
		Score:    90,
		Detail:   fmt.Sprintf("%d failed authentication attempts in window", failures),
	}
}

// detectSessionAnomaly flags one identifier presenting many user agents,
// which legitimate sessions rarely do.
func detectSessionAnomaly(events []Event) *Finding {
	agents := make(map[string]struct{})
	for _, e := range events {
		if e.UserAgent != "" {
			agents[e.UserAgent] = struct{}{}
		}
	}
	if len(agents) <= distinctUserAgentLimit {
		return nil
	}
	return &Finding{
		Type:     FindingSessionAnomaly,
		Severity: types.SeverityLow,
		Score:    50,
		Detail:   fmt.Sprintf("%d distinct user agents in window", len(agents)),
	}
}

func isAuthEndpoint(endpoint string) bool {
	return strings.Contains(endpoint, "/auth/") ||
		strings.Contains(endpoint, "/login") ||
		strings.Contains(endpoint, "/password")
}
