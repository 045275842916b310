package bypass

import (
	"context"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain/bypassattempt"
	"github.com/mitchellh/mapstructure"
)

// Stats is the aggregate reporting view over the audit trail for one period.
type Stats struct {
	TotalAttempts           int                        `json:"total_attempts"`
	AttemptsByType          map[bypassattempt.Type]int `json:"attempts_by_type"`
	MitigationEffectiveness float64                    `json:"mitigation_effectiveness"`
	PeakDistinctIPs         int64                      `json:"peak_distinct_ips"`
	PeakDistinctUserAgents  int64                      `json:"peak_distinct_user_agents"`
}

// rotationEvidence is the typed view of the evidence map attached to
// rotation attempts.
type rotationEvidence struct {
	DistinctIPs        int64 `mapstructure:"distinct_ips"`
	DistinctUserAgents int64 `mapstructure:"distinct_user_agents"`
}

// Attempts lists audit records, optionally filtered by type.
func (d *Detector) Attempts(ctx context.Context, attemptType bypassattempt.Type) ([]bypassattempt.Attempt, error) {
	return d.attempts.List(ctx, attemptType)
}

// StatsForPeriod aggregates attempts observed during the trailing period.
// Effectiveness is the fraction of attempts where mitigation applied.
func (d *Detector) StatsForPeriod(ctx context.Context, period time.Duration) (*Stats, error) {
	since := d.timeProvider().Add(-period)
	attempts, err := d.attempts.ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalAttempts:  len(attempts),
		AttemptsByType: make(map[bypassattempt.Type]int),
	}
	blocked := 0
	for _, attempt := range attempts {
		stats.AttemptsByType[attempt.Type]++
		if attempt.Blocked {
			blocked++
		}

		var evidence rotationEvidence
		if err := mapstructure.Decode(map[string]interface{}(attempt.Evidence), &evidence); err != nil {
			continue
		}
		if evidence.DistinctIPs > stats.PeakDistinctIPs {
			stats.PeakDistinctIPs = evidence.DistinctIPs
		}
		if evidence.DistinctUserAgents > stats.PeakDistinctUserAgents {
			stats.PeakDistinctUserAgents = evidence.DistinctUserAgents
		}
	}
	if len(attempts) > 0 {
		stats.MitigationEffectiveness = float64(blocked) / float64(len(attempts))
	}
	return stats, nil
}
