package ratelimit_test

import (
	"testing"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestTiers_LimitFor_RoleDefaults(t *testing.T) {
	tiers := ratelimit.DefaultTiers()

	tests := []struct {
		role types.UserRole
		max  int
	}{
		{types.RoleAnonymous, 30},
		{types.RoleBuyer, 120},
		{types.RoleSupplier, 300},
		{types.RoleAdmin, 1000},
	}
	for _, tt := range tests {
		cfg := tiers.LimitFor(&types.UserContext{Role: tt.role}, "/api/listings")
		assert.Equal(t, tt.max, cfg.MaxRequests, "role %s", tt.role)
		assert.Equal(t, time.Minute, cfg.Window)
	}
}

func TestTiers_LimitFor_RoleLimitsIncreaseWithTrust(t *testing.T) {
	tiers := ratelimit.DefaultTiers()
	roles := []types.UserRole{types.RoleAnonymous, types.RoleBuyer, types.RoleSupplier, types.RoleAdmin}

	previous := 0
	for _, role := range roles {
		cfg := tiers.LimitFor(&types.UserContext{Role: role}, "/api/listings")
		assert.Greater(t, cfg.MaxRequests, previous, "role %s must allow more than its predecessor", role)
		previous = cfg.MaxRequests
	}
}

func TestTiers_LimitFor_SensitiveEndpointsIgnoreRole(t *testing.T) {
	tiers := ratelimit.DefaultTiers()

	for _, role := range []types.UserRole{types.RoleAnonymous, types.RoleAdmin} {
		cfg := tiers.LimitFor(&types.UserContext{Role: role}, "/api/auth/login")
		assert.Equal(t, 5, cfg.MaxRequests, "role %s", role)
		assert.Equal(t, 15*time.Minute, cfg.Window)
	}

	cfg := tiers.LimitFor(&types.UserContext{Role: types.RoleBuyer}, "/api/auth/password-reset")
	assert.Equal(t, 3, cfg.MaxRequests)
}

func TestTiers_LimitFor_EndpointOverrideWinsOverSensitive(t *testing.T) {
	tiers := ratelimit.DefaultTiers()
	tiers.EndpointOverrides["/api/auth/login"] = ratelimit.Config{Window: time.Minute, MaxRequests: 50}

	cfg := tiers.LimitFor(&types.UserContext{Role: types.RoleAnonymous}, "/api/auth/login")
	assert.Equal(t, 50, cfg.MaxRequests)
}

func TestTiers_LimitFor_LongestPrefixWins(t *testing.T) {
	tiers := ratelimit.DefaultTiers()
	tiers.EndpointOverrides["/api/search"] = ratelimit.Config{Window: time.Minute, MaxRequests: 20}
	tiers.EndpointOverrides["/api/search/advanced"] = ratelimit.Config{Window: time.Minute, MaxRequests: 5}

	cfg := tiers.LimitFor(nil, "/api/search/advanced/filters")
	assert.Equal(t, 5, cfg.MaxRequests)

	cfg = tiers.LimitFor(nil, "/api/search/basic")
	assert.Equal(t, 20, cfg.MaxRequests)
}

func TestTiers_LimitFor_FallsBackToGlobal(t *testing.T) {
	tiers := ratelimit.DefaultTiers()

	cfg := tiers.LimitFor(nil, "/api/listings")
	assert.Equal(t, tiers.Global, cfg)

	cfg = tiers.LimitFor(&types.UserContext{Role: types.UserRole("unknown")}, "/api/listings")
	assert.Equal(t, tiers.Global, cfg)
}
