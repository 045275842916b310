package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/behavior"
	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/infra/captchaprovider"
	"github.com/LeadFlux/AbuseGate/pkg/metrics"
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Decision says whether a challenge is required and why.
type Decision struct {
	Required   bool       `json:"required"`
	Reason     string     `json:"reason,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// VerifyOutcome is the caller-facing result of one verification attempt.
// Challenge-state failures carry a specific Error so clients can re-issue
// instead of retrying blindly.
type VerifyOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const (
	errChallengeNotFound  = "Challenge not found"
	errChallengeExpired   = "Challenge expired"
	errChallengeExhausted = "Challenge attempts exhausted"
	errVerificationFailed = "Verification failed"
)

// Manager decides when challenges are required and drives their lifecycle.
// Challenge records live in the shared store keyed by challenge id.
type Manager struct {
	cache        *cache.Cache
	registry     *ratelimit.SuspiciousRegistry
	verifier     captchaprovider.Verifier
	logger       *logrus.Logger
	cfg          config.CaptchaConfig
	timeProvider func() time.Time
	uuidProvider func() uuid.UUID
}

type Options struct {
	TimeProvider func() time.Time
	UUIDProvider func() uuid.UUID
}

func NewManager(
	logger *logrus.Logger,
	c *cache.Cache,
	registry *ratelimit.SuspiciousRegistry,
	verifier captchaprovider.Verifier,
	cfg config.CaptchaConfig,
	opts *Options,
) *Manager {
	m := &Manager{
		cache:        c,
		registry:     registry,
		verifier:     verifier,
		logger:       logger,
		cfg:          cfg,
		timeProvider: time.Now,
		uuidProvider: uuid.New,
	}
	if opts != nil {
		if opts.TimeProvider != nil {
			m.timeProvider = opts.TimeProvider
		}
		if opts.UUIDProvider != nil {
			m.uuidProvider = opts.UUIDProvider
		}
	}
	return m
}

// ShouldRequire decides whether the actor must solve a challenge. Any single
// signal suffices, except that trusted roles short-circuit to not-required.
func (m *Manager) ShouldRequire(ctx context.Context, userCtx *types.UserContext, score *behavior.Score, requestRate int) Decision {
	if userCtx.Role.Trusted() {
		return Decision{}
	}

	if score != nil && score.OverallScore < m.cfg.ScoreThreshold {
		return Decision{
			Required:   true,
			Reason:     "behavior score below threshold",
			Difficulty: difficultyForScore(score.OverallScore),
		}
	}

	if requestRate > m.cfg.RateThreshold {
		return Decision{
			Required:   true,
			Reason:     "request rate above threshold",
			Difficulty: DifficultyMedium,
		}
	}

	if m.registry.IsSuspicious(ctx, userCtx.IPAddress) {
		return Decision{
			Required:   true,
			Reason:     "source address flagged as suspicious",
			Difficulty: DifficultyHard,
		}
	}

	return Decision{}
}

// CreateChallenge issues a new challenge with TTL and attempt budget.
func (m *Manager) CreateChallenge(ctx context.Context, userCtx *types.UserContext, difficulty Difficulty) (*Challenge, error) {
	now := m.timeProvider()
	challenge := &Challenge{
		ID:          m.uuidProvider().String(),
		Difficulty:  difficulty,
		IPAddress:   userCtx.IPAddress,
		CreatedAt:   now,
		ExpiresAt:   now.Add(common.ChallengeTTL),
		MaxAttempts: common.ChallengeMaxAttempts,
	}
	if err := m.store(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist challenge: %w", err)
	}
	metrics.CaptchaChallenges.WithLabelValues("issued").Inc()
	return challenge, nil
}

// VerifyChallenge runs one verification attempt against the vendor.
//
// Expired and exhausted challenges fail fast without a vendor call, which
// keeps the vendor from being used as a verification oracle. A vendor outage
// is a verification failure, never a silent pass.
func (m *Manager) VerifyChallenge(ctx context.Context, id string, response string, userCtx *types.UserContext) VerifyOutcome {
	challenge, err := m.load(ctx, id)
	if err != nil {
		return VerifyOutcome{Error: errChallengeNotFound}
	}

	now := m.timeProvider()
	switch challenge.State(now) {
	case StateVerified:
		return VerifyOutcome{Success: true}
	case StateExpired:
		metrics.CaptchaChallenges.WithLabelValues("expired").Inc()
		return VerifyOutcome{Error: errChallengeExpired}
	case StateExhausted:
		return VerifyOutcome{Error: errChallengeExhausted}
	}

	verifyCtx, cancel := context.WithTimeout(ctx, common.ExternalCallTimeout)
	defer cancel()
	result, err := m.verifier.Verify(verifyCtx, response, userCtx.IPAddress)
	if err != nil || !result.Success {
		if err != nil {
			m.logger.WithError(err).WithField("challenge_id", id).
				Warn("captcha vendor verification failed")
		}
		challenge.Attempts++
		if storeErr := m.store(ctx, challenge); storeErr != nil {
			m.logger.WithError(storeErr).Warn("failed to persist challenge attempt")
		}
		if challenge.Attempts >= challenge.MaxAttempts {
			metrics.CaptchaChallenges.WithLabelValues("exhausted").Inc()
			return VerifyOutcome{Error: errChallengeExhausted}
		}
		metrics.CaptchaChallenges.WithLabelValues("failed").Inc()
		return VerifyOutcome{Error: errVerificationFailed}
	}

	// Success destroys the challenge so the id cannot be replayed.
	if err := m.cache.Delete(ctx, fmt.Sprintf(cache.ChallengeKeyPattern, id)); err != nil {
		m.logger.WithError(err).Warn("failed to delete verified challenge")
	}
	metrics.CaptchaChallenges.WithLabelValues("verified").Inc()
	return VerifyOutcome{Success: true}
}

// store persists the record with a grace TTL beyond the logical ExpiresAt.
// ExpiresAt stays the lifecycle boundary; the longer store TTL only keeps the
// expired record readable so verification reports expiry, not absence.
func (m *Manager) store(ctx context.Context, challenge *Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, fmt.Sprintf(cache.ChallengeKeyPattern, challenge.ID), string(payload), common.ChallengeRecordTTL)
}

func (m *Manager) load(ctx context.Context, id string) (*Challenge, error) {
	raw, err := m.cache.Get(ctx, fmt.Sprintf(cache.ChallengeKeyPattern, id))
	if err != nil {
		return nil, err
	}
	var challenge Challenge
	if err := json.Unmarshal([]byte(raw), &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func difficultyForScore(score int) Difficulty {
	switch {
	case score < 30:
		return DifficultyHard
	case score < 60:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}
