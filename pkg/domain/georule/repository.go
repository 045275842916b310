package georule

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Save(ctx context.Context, rule *Rule) error
	Get(ctx context.Context, id uuid.UUID) (*Rule, error)
	ListEnabled(ctx context.Context) ([]Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
