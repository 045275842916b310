package blockrule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Save(ctx context.Context, rule *Rule) error
	FindByValue(ctx context.Context, target Target, value string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
