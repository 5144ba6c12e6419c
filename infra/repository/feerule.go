package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

type feeRuleRepository struct {
	db *gorm.DB
}

// NewFeeRuleRepository creates a fee rule repository bound to the given
// session.
func NewFeeRuleRepository(db *gorm.DB) repo.FeeRuleRepository {
	return &feeRuleRepository{db: db}
}

func (r *feeRuleRepository) ActiveForCurrency(ctx context.Context, currency string) (*domain.FeeRule, error) {
	var row FeeRule
	err := r.db.WithContext(ctx).
		Where("currency = ? AND is_active = ?", currency, true).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // no rule configured: callers fail open with zero fee
	}
	if err != nil {
		return nil, err
	}
	return mapFeeRuleToDomain(&row), nil
}

func (r *feeRuleRepository) Create(ctx context.Context, rule *domain.FeeRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.IsActive = true
	row := mapFeeRuleToModel(rule)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	rule.CreatedAt = row.CreatedAt
	return nil
}

func (r *feeRuleRepository) DeactivateForCurrency(ctx context.Context, currency string) error {
	return r.db.WithContext(ctx).
		Model(&FeeRule{}).
		Where("currency = ? AND is_active = ?", currency, true).
		Update("is_active", false).Error
}

func (r *feeRuleRepository) ListByCurrency(ctx context.Context, currency string) ([]*domain.FeeRule, error) {
	var rows []FeeRule
	err := r.db.WithContext(ctx).
		Where("currency = ?", currency).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*domain.FeeRule, 0, len(rows))
	for i := range rows {
		result = append(result, mapFeeRuleToDomain(&rows[i]))
	}
	return result, nil
}

func mapFeeRuleToModel(rule *domain.FeeRule) *FeeRule {
	return &FeeRule{
		ID:         rule.ID,
		Currency:   rule.Currency,
		Percentage: rule.Percentage,
		MinAmount:  rule.MinAmount,
		MaxAmount:  rule.MaxAmount,
		IsActive:   rule.IsActive,
	}
}

func mapFeeRuleToDomain(row *FeeRule) *domain.FeeRule {
	return &domain.FeeRule{
		ID:         row.ID,
		Currency:   row.Currency,
		Percentage: row.Percentage,
		MinAmount:  row.MinAmount,
		MaxAmount:  row.MaxAmount,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
