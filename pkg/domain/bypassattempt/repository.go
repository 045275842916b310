package bypassattempt

import (
	"context"
	"time"
)

type Repository interface {
	Save(ctx context.Context, attempt *Attempt) error
	List(ctx context.Context, attemptType Type) ([]Attempt, error)
	ListSince(ctx context.Context, since time.Time) ([]Attempt, error)
}
