package blockrule

import (
	"fmt"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Target string

const (
	TargetPhone   Target = "phone"
	TargetIP      Target = "ip"
	TargetEmail   Target = "email"
	TargetPattern Target = "pattern"
)

// Rule is a hard blocking rule shared with the fraud subsystem. Rules are
// consulted before any rate-limit check; expired rules are removed by the
// expiry sweep.
type Rule struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Target      Target     `json:"target"`
	Value       string     `json:"value" gorm:"index"`
	Reason      string     `json:"reason"`
	ExpiresAt   *time.Time `json:"expires_at"`
	AutoBlocked bool       `json:"auto_blocked"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	return r.Validate()
}

func (r *Rule) Validate() error {
	switch r.Target {
	case TargetPhone, TargetIP, TargetEmail, TargetPattern:
	default:
		return domain.ErrInvalidBlockTarget
	}
	if r.Value == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

// Expired reports whether the rule has lapsed. Permanent rules never expire.
func (r *Rule) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
