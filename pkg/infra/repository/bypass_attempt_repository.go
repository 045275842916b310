package repository

import (
	"context"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain/bypassattempt"
	"gorm.io/gorm"
)

type bypassAttemptRepository struct {
	db *gorm.DB
}

func NewBypassAttemptRepository(db *gorm.DB) bypassattempt.Repository {
	return &bypassAttemptRepository{db: db}
}

func (r *bypassAttemptRepository) Save(ctx context.Context, attempt *bypassattempt.Attempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *bypassAttemptRepository) List(ctx context.Context, attemptType bypassattempt.Type) ([]bypassattempt.Attempt, error) {
	var attempts []bypassattempt.Attempt
	query := r.db.WithContext(ctx).Order("last_detected desc")
	if attemptType != "" {
		query = query.Where("type = ?", attemptType)
	}
	err := query.Find(&attempts).Error
	return attempts, err
}

func (r *bypassAttemptRepository) ListSince(ctx context.Context, since time.Time) ([]bypassattempt.Attempt, error) {
	var attempts []bypassattempt.Attempt
	err := r.db.WithContext(ctx).
		Where("last_detected >= ?", since).
		Order("last_detected desc").
		Find(&attempts).Error
	return attempts, err
}
