package repository

import (
	"context"
	"errors"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type blockRuleRepository struct {
	db *gorm.DB
}

func NewBlockRuleRepository(db *gorm.DB) blockrule.Repository {
	return &blockRuleRepository{db: db}
}

func (r *blockRuleRepository) Save(ctx context.Context, rule *blockrule.Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *blockRuleRepository) FindByValue(ctx context.Context, target blockrule.Target, value string) (*blockrule.Rule, error) {
	var entity blockrule.Rule
	err := r.db.WithContext(ctx).
		Where("target = ? AND value = ?", target, value).
		Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (r *blockRuleRepository) List(ctx context.Context) ([]blockrule.Rule, error) {
	var rules []blockrule.Rule
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&rules).Error
	return rules, err
}

func (r *blockRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&blockrule.Rule{}, "id = ?", id).Error
}

func (r *blockRuleRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&blockrule.Rule{})
	return res.RowsAffected, res.Error
}
