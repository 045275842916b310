package repository

import (
	"context"
	"errors"

	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/LeadFlux/AbuseGate/pkg/domain/georule"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type geoRuleRepository struct {
	db *gorm.DB
}

func NewGeoRuleRepository(db *gorm.DB) georule.Repository {
	return &geoRuleRepository{db: db}
}

func (r *geoRuleRepository) Save(ctx context.Context, rule *georule.Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *geoRuleRepository) Get(ctx context.Context, id uuid.UUID) (*georule.Rule, error) {
	var entity georule.Rule
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("geo rule", id)
		}
		return nil, err
	}
	return &entity, nil
}

func (r *geoRuleRepository) ListEnabled(ctx context.Context) ([]georule.Rule, error) {
	var rules []georule.Rule
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority desc").
		Find(&rules).Error
	return rules, err
}

func (r *geoRuleRepository) List(ctx context.Context) ([]georule.Rule, error) {
	var rules []georule.Rule
	err := r.db.WithContext(ctx).Order("priority desc").Find(&rules).Error
	return rules, err
}

func (r *geoRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&georule.Rule{}, "id = ?", id).Error
}
