package georule

import (
	"fmt"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RuleType string

const (
	TypeBlock RuleType = "block"
	TypeAllow RuleType = "allow"
)

// Rule is a geographic access rule. Rules are evaluated in descending
// priority; the first matching block rule wins and absence of a match allows.
type Rule struct {
	ID             uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type           RuleType             `json:"type"`
	Countries      domain.CountriesJSON `json:"countries" gorm:"type:jsonb"`
	MaxThreatLevel types.ThreatLevel    `json:"max_threat_level"`
	Priority       int                  `json:"priority"`
	Enabled        bool                 `json:"enabled"`
	Description    string               `json:"description"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	return r.Validate()
}

func (r *Rule) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedAt = time.Now()
	return r.Validate()
}

func (r *Rule) Validate() error {
	switch r.Type {
	case TypeBlock, TypeAllow:
	default:
		return domain.ErrInvalidRuleType
	}
	if len(r.Countries) == 0 {
		return fmt.Errorf("countries is required")
	}
	if r.MaxThreatLevel == "" {
		r.MaxThreatLevel = types.ThreatLow
	}
	return nil
}

// Matches reports whether the rule applies to the given location: the
// location's country is listed and its threat level is at or above the rule's
// threshold. Pure function of its inputs.
func (r *Rule) Matches(countryCode string, threat types.ThreatLevel) bool {
	if !r.Enabled {
		return false
	}
	if !r.Countries.Contains(countryCode) {
		return false
	}
	return threat.AtLeast(r.MaxThreatLevel)
}
