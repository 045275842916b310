package behavior

import "time"

// Risk factor names surfaced in the composite score.
const (
	FactorBurstActivity      = "burstActivity"
	FactorRegularIntervals   = "regularIntervals"
	FactorErrorRate          = "errorRate"
	FactorEndpointScanning   = "endpointScanning"
	FactorCredentialStuffing = "credentialStuffing"
	FactorSessionAnomalies   = "sessionAnomalies"
)

// Score is the derived trust estimate: 100 is clean, 0 fully distrusted.
// It is a cache artifact, never a source of truth.
type Score struct {
	OverallScore    int            `json:"overall_score"`
	RiskFactors     map[string]int `json:"risk_factors"`
	Recommendations []string       `json:"recommendations"`
	ComputedAt      time.Time      `json:"computed_at"`
}

var factorWeights = map[string]float64{
	FactorBurstActivity:      0.25,
	FactorRegularIntervals:   0.20,
	FactorErrorRate:          0.20,
	FactorEndpointScanning:   0.15,
	FactorCredentialStuffing: 0.15,
	FactorSessionAnomalies:   0.05,
}

var findingFactors = map[FindingType]string{
	FindingBurst:              FactorBurstActivity,
	FindingRegularIntervals:   FactorRegularIntervals,
	FindingErrorFarming:       FactorErrorRate,
	FindingEndpointScanning:   FactorEndpointScanning,
	FindingCredentialStuffing: FactorCredentialStuffing,
	FindingSessionAnomaly:     FactorSessionAnomalies,
}

var factorRecommendations = map[string]string{
	FactorBurstActivity:      "throttle burst traffic from this identifier",
	FactorRegularIntervals:   "challenge suspected scripted traffic",
	FactorErrorRate:          "review enumeration or probing activity",
	FactorEndpointScanning:   "restrict endpoint discovery for this identifier",
	FactorCredentialStuffing: "require captcha on authentication endpoints",
	FactorSessionAnomalies:   "verify session consistency for this identifier",
}

// CleanScore is the default for identifiers with no accumulated pattern.
func CleanScore() *Score {
	return &Score{
		OverallScore: 100,
		RiskFactors:  map[string]int{},
		ComputedAt:   time.Now(),
	}
}

// Compose folds findings into the composite score. Each active risk factor
// lowers the overall score by its weighted sub-score; the result floors at 0.
func Compose(findings []Finding) *Score {
	score := CleanScore()
	for _, f := range findings {
		factor, ok := findingFactors[f.Type]
		if !ok {
			continue
		}
		if existing, ok := score.RiskFactors[factor]; !ok || f.Score > existing {
			score.RiskFactors[factor] = f.Score
		}
	}

	penalty := 0.0
	for factor, sub := range score.RiskFactors {
		penalty += factorWeights[factor] * float64(sub)
		if rec, ok := factorRecommendations[factor]; ok {
			score.Recommendations = append(score.Recommendations, rec)
		}
	}

	overall := 100 - int(penalty)
	if overall < 0 {
		overall = 0
	}
	score.OverallScore = overall
	return score
}
