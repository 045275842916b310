package bypassattempt

import (
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Type string

const (
	TypeHeaderManipulation Type = "header_manipulation"
	TypeIPRotation         Type = "ip_rotation"
	TypeUserAgentRotation  Type = "user_agent_rotation"
)

// Attempt is an append-only audit record of a detected evasion attempt. It is
// queried for reporting only; enforcement happens through the penalty
// multiplier returned to the limiter, never through this record.
type Attempt struct {
	ID           uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type         Type                `json:"type" gorm:"index"`
	Identifier   string              `json:"identifier" gorm:"index"`
	IPAddress    string              `json:"ip_address"`
	Severity     types.Severity      `json:"severity"`
	Confidence   int                 `json:"confidence"`
	Evidence     domain.EvidenceJSON `json:"evidence" gorm:"type:jsonb"`
	Blocked      bool                `json:"blocked"`
	LastDetected time.Time           `json:"last_detected" gorm:"index"`
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.LastDetected.IsZero() {
		a.LastDetected = time.Now()
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 100 {
		a.Confidence = 100
	}
	return nil
}
