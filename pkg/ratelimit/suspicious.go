package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/sirupsen/logrus"
)

// SuspiciousRegistry is the shared membership set of IPs flagged by other
// engines, consulted by the challenge manager. Entries expire via TTL; there
// is no manual removal beyond expiry.
type SuspiciousRegistry struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

func NewSuspiciousRegistry(logger *logrus.Logger, c *cache.Cache) *SuspiciousRegistry {
	return &SuspiciousRegistry{cache: c, logger: logger}
}

// Add flags an IP for the given TTL, in the global set and the per-country
// set when the country is known.
func (r *SuspiciousRegistry) Add(ctx context.Context, ip, country string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = common.SuspiciousIPTTL
	}
	entryKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, ip)

	pipe := r.cache.Client().TxPipeline()
	pipe.Set(ctx, entryKey, country, ttl)
	pipe.SAdd(ctx, cache.SuspiciousIPGlobalKey, ip)
	pipe.Expire(ctx, cache.SuspiciousIPGlobalKey, common.SuspiciousIPTTL)
	if country != "" {
		countryKey := fmt.Sprintf(cache.SuspiciousIPCountryKey, country)
		pipe.SAdd(ctx, countryKey, ip)
		pipe.Expire(ctx, countryKey, common.SuspiciousIPTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to flag suspicious ip: %w", err)
	}
	return nil
}

// IsSuspicious reports TTL-honoring membership. Store failures read as not
// suspicious: the registry is advisory, never a blocker on its own.
func (r *SuspiciousRegistry) IsSuspicious(ctx context.Context, ip string) bool {
	entryKey := fmt.Sprintf(cache.SuspiciousIPEntryKey, ip)
	exists, err := r.cache.Client().Exists(ctx, entryKey).Result()
	if err != nil {
		r.logger.WithError(err).Debug("suspicious ip check failed, treating as clean")
		return false
	}
	return exists > 0
}

// CountryMembers lists currently flagged IPs for one country, for reporting.
func (r *SuspiciousRegistry) CountryMembers(ctx context.Context, country string) ([]string, error) {
	countryKey := fmt.Sprintf(cache.SuspiciousIPCountryKey, country)
	return r.cache.Client().SMembers(ctx, countryKey).Result()
}
