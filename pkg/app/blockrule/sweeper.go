package blockrule

import (
	"context"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/sirupsen/logrus"
)

const defaultSweepInterval = 5 * time.Minute

// Sweeper removes lapsed blocking rules on a fixed interval so temporary
// blocks (including auto-blocks from bypass detection) actually lapse.
type Sweeper struct {
	logger   *logrus.Logger
	repo     blockrule.Repository
	interval time.Duration
}

func NewSweeper(logger *logrus.Logger, repo blockrule.Repository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{logger: logger, repo: repo, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("failed to sweep expired block rules")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("swept expired block rules")
	}
}
