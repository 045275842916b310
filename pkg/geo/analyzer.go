package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/common"
	"github.com/LeadFlux/AbuseGate/pkg/domain/georule"
	"github.com/LeadFlux/AbuseGate/pkg/infra/geoprovider"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Location is the cached reputation/location record for one IP.
type Location struct {
	IPAddress   string            `json:"ip_address"`
	Country     string            `json:"country"`
	CountryCode string            `json:"country_code"`
	City        string            `json:"city"`
	ThreatLevel types.ThreatLevel `json:"threat_level"`
	Reputation  int               `json:"reputation"`
	IsTor       bool              `json:"is_tor"`
	IsVPN       bool              `json:"is_vpn"`
	IsProxy     bool              `json:"is_proxy"`
}

const localCountryCode = "LO"

// Analyzer resolves IP reputation records and evaluates geographic block
// rules. Lookups are cache-first; the provider sits behind a circuit breaker
// and concurrent lookups for one IP are deduplicated.
type Analyzer struct {
	cache      *cache.Cache
	localGeo   *cache.TTLMap
	localRules *cache.TTLMap
	provider   geoprovider.Provider
	rules      georule.Repository
	logger     *logrus.Logger
	group      singleflight.Group
}

func NewAnalyzer(
	logger *logrus.Logger,
	c *cache.Cache,
	provider geoprovider.Provider,
	rules georule.Repository,
) *Analyzer {
	return &Analyzer{
		cache:      c,
		localGeo:   c.CreateTTLMap(cache.GeoLocationTTLName, common.GeoLocationCacheTTL),
		localRules: c.CreateTTLMap(cache.GeoRulesTTLName, common.GeoRulesCacheTTL),
		provider:   provider,
		rules:      rules,
		logger:     logger,
	}
}

// AnalyzeIP resolves the location record for an IP. Private and loopback
// ranges resolve to a "Local" sentinel without touching the provider;
// provider failures degrade to a low-threat record so an outage never blocks
// traffic.
func (a *Analyzer) AnalyzeIP(ctx context.Context, ip string) *Location {
	if loc := a.cachedLocation(ctx, ip); loc != nil {
		return loc
	}

	if isPrivateOrLoopback(ip) {
		loc := localSentinel(ip)
		a.localGeo.Set(ip, loc)
		return loc
	}

	result, err, _ := a.group.Do(ip, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(ctx, common.ExternalCallTimeout)
		defer cancel()
		return a.provider.Lookup(lookupCtx, ip)
	})
	if err != nil {
		a.logger.WithError(err).WithField("ip", ip).
			Warn("geo provider lookup failed, assuming low threat")
		return failOpenLocation(ip)
	}

	record, ok := result.(*geoprovider.Record)
	if !ok || record == nil {
		return failOpenLocation(ip)
	}

	loc := &Location{
		IPAddress:   ip,
		Country:     record.Country,
		CountryCode: record.CountryCode,
		City:        record.City,
		ThreatLevel: record.ThreatLevel,
		Reputation:  record.Reputation,
		IsTor:       record.IsTor,
		IsVPN:       record.IsVPN,
		IsProxy:     record.IsProxy,
	}
	a.storeLocation(ctx, loc)
	return loc
}

// Verdict is the outcome of a geographic block check.
type Verdict struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
	RuleID  string `json:"rule_id,omitempty"`
}

// ShouldBlockIP evaluates the active rule set against the IP's location.
// Rule loading failures fail open.
func (a *Analyzer) ShouldBlockIP(ctx context.Context, ip string) Verdict {
	rules := a.activeRules(ctx)
	if len(rules) == 0 {
		return Verdict{}
	}
	loc := a.AnalyzeIP(ctx, ip)
	return EvaluateRules(rules, loc)
}

// InvalidateRules drops the cached rule set after a rule change.
func (a *Analyzer) InvalidateRules() {
	a.localRules.Delete(cache.GeoRulesKey)
}

func (a *Analyzer) cachedLocation(ctx context.Context, ip string) *Location {
	if value, ok := a.localGeo.Get(ip); ok {
		if loc, ok := value.(*Location); ok {
			return loc
		}
	}
	raw, err := a.cache.Get(ctx, fmt.Sprintf(cache.GeoLocationPattern, ip))
	if err != nil {
		return nil
	}
	var loc Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return nil
	}
	a.localGeo.Set(ip, &loc)
	return &loc
}

func (a *Analyzer) storeLocation(ctx context.Context, loc *Location) {
	// High-threat records get a short TTL so they are re-evaluated sooner.
	ttl := common.GeoLocationCacheTTL
	if loc.ThreatLevel.AtLeast(types.ThreatHigh) {
		ttl = common.GeoHighThreatCacheTTL
	}
	a.localGeo.SetWithTTL(loc.IPAddress, loc, ttl)

	payload, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, fmt.Sprintf(cache.GeoLocationPattern, loc.IPAddress), string(payload), ttl); err != nil {
		a.logger.WithError(err).Debug("failed to cache geo location in store")
	}
}

func (a *Analyzer) activeRules(ctx context.Context) []georule.Rule {
	if value, ok := a.localRules.Get(cache.GeoRulesKey); ok {
		if rules, ok := value.([]georule.Rule); ok {
			return rules
		}
	}
	rules, err := a.rules.ListEnabled(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("failed to load geo rules, failing open")
		return nil
	}
	a.localRules.Set(cache.GeoRulesKey, rules)
	return rules
}

func isPrivateOrLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}

func localSentinel(ip string) *Location {
	return &Location{
		IPAddress:   ip,
		Country:     "Local",
		CountryCode: localCountryCode,
		City:        "Local",
		ThreatLevel: types.ThreatLow,
		Reputation:  100,
	}
}

func failOpenLocation(ip string) *Location {
	return &Location{
		IPAddress:   ip,
		Country:     "Unknown",
		CountryCode: "",
		ThreatLevel: types.ThreatLow,
		Reputation:  50,
	}
}
