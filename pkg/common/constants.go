package common

import "time"

const (
	GeoLocationCacheTTL     = 24 * time.Hour
	GeoHighThreatCacheTTL   = 1 * time.Hour
	GeoRulesCacheTTL        = 5 * time.Minute
	BehaviorScoreCacheTTL   = 1 * time.Minute
	BehaviorRetentionWindow = 1 * time.Hour
	SuspiciousIPTTL         = 1 * time.Hour
	RotationTrackingWindow  = 10 * time.Minute
	ChallengeTTL            = 10 * time.Minute
	// ChallengeRecordTTL keeps the stored record around past the logical
	// expiry so verification of an expired challenge can say so instead of
	// reporting the record missing.
	ChallengeRecordTTL = 2 * ChallengeTTL

	ChallengeMaxAttempts = 3

	ExternalCallTimeout = 3 * time.Second
)
