package types

// UserRole identifies the trust tier of the requesting actor. Roles are
// ordered: a higher trust rank maps to a more permissive rate-limit tier.
type UserRole string

const (
	RoleAnonymous UserRole = "anonymous"
	RoleBuyer     UserRole = "buyer"
	RoleSupplier  UserRole = "supplier"
	RoleAdmin     UserRole = "admin"
)

var roleRanks = map[UserRole]int{
	RoleAnonymous: 0,
	RoleBuyer:     1,
	RoleSupplier:  2,
	RoleAdmin:     3,
}

// TrustRank returns the role's position in the trust ordering. Unknown roles
// rank as anonymous.
func (r UserRole) TrustRank() int {
	return roleRanks[r]
}

// Trusted reports whether the role short-circuits challenge decisions.
func (r UserRole) Trusted() bool {
	return r == RoleAdmin
}

func ParseUserRole(s string) UserRole {
	switch UserRole(s) {
	case RoleBuyer, RoleSupplier, RoleAdmin:
		return UserRole(s)
	default:
		return RoleAnonymous
	}
}

// ThreatLevel is the ordered threat classification attached to an IP
// reputation record.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

var threatRanks = map[ThreatLevel]int{
	ThreatLow:      0,
	ThreatMedium:   1,
	ThreatHigh:     2,
	ThreatCritical: 3,
}

func (t ThreatLevel) Rank() int {
	return threatRanks[t]
}

// AtLeast reports whether t is at or above other in the threat ordering.
func (t ThreatLevel) AtLeast(other ThreatLevel) bool {
	return t.Rank() >= other.Rank()
}

// Severity grades detector findings and bypass attempts.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRanks = map[Severity]int{
	SeverityLow:    0,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

func (s Severity) Rank() int {
	return severityRanks[s]
}

func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// UserContext describes the actor behind a single request. It is built once
// per request by the middleware and never persisted.
type UserContext struct {
	Authenticated bool
	UserID        string
	Role          UserRole
	IPAddress     string
	UserAgent     string
	Country       string
	City          string
}

// Identifier returns the default key used to scope limits and behavior
// tracking: authenticated actors key on the user id, everyone else on the IP.
func (u *UserContext) Identifier() string {
	if u.Authenticated && u.UserID != "" {
		return "user:" + u.UserID
	}
	return "ip:" + u.IPAddress
}
