package ratelimit

import (
	"sort"
	"strings"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/types"
)

// Tiers is the static limit table. Resolution precedence, most specific
// first: endpoint override, sensitive-endpoint tier, role default, global
// default. Sensitive endpoints keep their tight tier regardless of role
// because credential-stuffing risk dominates trust level there.
type Tiers struct {
	Global            Config
	RoleDefaults      map[types.UserRole]Config
	EndpointOverrides map[string]Config
	SensitivePrefixes map[string]Config
}

// DefaultTiers returns the production table. Role limits increase
// monotonically with trust.
func DefaultTiers() *Tiers {
	return &Tiers{
		Global: Config{Window: time.Minute, MaxRequests: 60},
		RoleDefaults: map[types.UserRole]Config{
			types.RoleAnonymous: {Window: time.Minute, MaxRequests: 30},
			types.RoleBuyer:     {Window: time.Minute, MaxRequests: 120},
			types.RoleSupplier:  {Window: time.Minute, MaxRequests: 300},
			types.RoleAdmin:     {Window: time.Minute, MaxRequests: 1000},
		},
		EndpointOverrides: map[string]Config{},
		SensitivePrefixes: map[string]Config{
			"/api/auth/login":          {Window: 15 * time.Minute, MaxRequests: 5},
			"/api/auth/register":       {Window: 15 * time.Minute, MaxRequests: 10},
			"/api/auth/password-reset": {Window: 15 * time.Minute, MaxRequests: 3},
		},
	}
}

// LimitFor resolves the applicable config for a request. Resolution is
// deterministic: the same inputs always yield the same tier.
func (t *Tiers) LimitFor(userCtx *types.UserContext, endpointPath string) Config {
	if endpointPath != "" {
		if cfg, ok := t.EndpointOverrides[endpointPath]; ok {
			return cfg
		}
		if cfg, ok := matchLongestPrefix(t.EndpointOverrides, endpointPath); ok {
			return cfg
		}
		if cfg, ok := matchLongestPrefix(t.SensitivePrefixes, endpointPath); ok {
			return cfg
		}
	}
	if userCtx != nil {
		if cfg, ok := t.RoleDefaults[userCtx.Role]; ok {
			return cfg
		}
	}
	return t.Global
}

// matchLongestPrefix picks the most specific prefix entry matching the path.
func matchLongestPrefix(table map[string]Config, path string) (Config, bool) {
	prefixes := make([]string, 0, len(table))
	for prefix := range table {
		if strings.HasPrefix(path, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	if len(prefixes) == 0 {
		return Config{}, false
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	return table[prefixes[0]], true
}
