package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrChallengeExpired   = errors.New("challenge expired")
	ErrChallengeExhausted = errors.New("challenge attempts exhausted")
	ErrInvalidRuleType    = errors.New("invalid rule type, must be 'block' or 'allow'")
	ErrInvalidBlockTarget = errors.New("invalid block target, must be 'phone', 'ip', 'email' or 'pattern'")
)

type notFoundError struct {
	EntityType string
	ID         uuid.UUID
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.EntityType, e.ID.String())
}

func NewNotFoundError(entityType string, id uuid.UUID) error {
	return &notFoundError{
		EntityType: entityType,
		ID:         id,
	}
}

func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nf *notFoundError
	return errors.As(err, &nf)
}
