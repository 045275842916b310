package geo

import (
	"sort"

	"github.com/LeadFlux/AbuseGate/pkg/domain/georule"
)

// EvaluateRules applies the rule set to a resolved location. Rules run in
// descending priority; the first match decides (block or explicit allow) and
// no match allows. Pure function of its inputs.
func EvaluateRules(rules []georule.Rule, loc *Location) Verdict {
	if loc == nil || loc.CountryCode == localCountryCode {
		return Verdict{}
	}

	ordered := make([]georule.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for i := range ordered {
		rule := &ordered[i]
		if !rule.Matches(loc.CountryCode, loc.ThreatLevel) {
			continue
		}
		if rule.Type == georule.TypeBlock {
			return Verdict{
				Blocked: true,
				Reason:  blockReason(rule),
				RuleID:  rule.ID.String(),
			}
		}
		// An allow rule shields the location from lower-priority blocks.
		return Verdict{}
	}
	return Verdict{}
}

func blockReason(rule *georule.Rule) string {
	if rule.Description != "" {
		return rule.Description
	}
	return "access from this region is not permitted"
}
