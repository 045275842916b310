package behavior

import (
	"testing"

	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestCleanScore(t *testing.T) {
	score := CleanScore()
	assert.Equal(t, 100, score.OverallScore)
	assert.Empty(t, score.RiskFactors)
	assert.Empty(t, score.Recommendations)
	assert.False(t, score.ComputedAt.IsZero())
}

func TestCompose_NoFindings(t *testing.T) {
	score := Compose(nil)
	assert.Equal(t, 100, score.OverallScore)
}

func TestCompose_SingleFinding(t *testing.T) {
	score := Compose([]Finding{
		{Type: FindingBurst, Severity: types.SeverityMedium, Score: 70},
	})

	// burst weighs 0.25, so the 70 sub-score costs 17 points
	assert.Equal(t, 83, score.OverallScore)
	assert.Equal(t, 70, score.RiskFactors[FactorBurstActivity])
	assert.Len(t, score.Recommendations, 1)
}

func TestCompose_KeepsWorstSubScorePerFactor(t *testing.T) {
	score := Compose([]Finding{
		{Type: FindingBurst, Score: 40},
		{Type: FindingBurst, Score: 70},
		{Type: FindingBurst, Score: 55},
	})

	assert.Equal(t, 70, score.RiskFactors[FactorBurstActivity])
	assert.Len(t, score.Recommendations, 1, "one recommendation per factor")
}

func TestCompose_AllFactorsFloorAtZero(t *testing.T) {
	findings := []Finding{
		{Type: FindingBurst, Score: 100},
		{Type: FindingRegularIntervals, Score: 100},
		{Type: FindingErrorFarming, Score: 100},
		{Type: FindingEndpointScanning, Score: 100},
		{Type: FindingCredentialStuffing, Score: 100},
		{Type: FindingSessionAnomaly, Score: 100},
	}
	score := Compose(findings)

	// weights sum to 1.0, so maximal findings drain the score completely
	assert.Equal(t, 0, score.OverallScore)
	assert.Len(t, score.RiskFactors, 6)
}

func TestCompose_IgnoresUnknownFindingTypes(t *testing.T) {
	score := Compose([]Finding{{Type: FindingType("made_up"), Score: 100}})
	assert.Equal(t, 100, score.OverallScore)
	assert.Empty(t, score.RiskFactors)
}
