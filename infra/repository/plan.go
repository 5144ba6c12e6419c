package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a plan repository bound to the given session.
func NewPlanRepository(db *gorm.DB) repo.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetPlan(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	var row Plan
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.Plan{ID: row.ID, Name: row.Name, IsActive: row.IsActive, CreatedAt: row.CreatedAt}, nil
}

func (r *planRepository) GetPrice(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	var row Price
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapPriceToDomain(&row), nil
}

func (r *planRepository) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	var rows []Plan
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.Plan, 0, len(rows))
	for i := range rows {
		result = append(result, &domain.Plan{
			ID:        rows[i].ID,
			Name:      rows[i].Name,
			IsActive:  rows[i].IsActive,
			CreatedAt: rows[i].CreatedAt,
		})
	}
	return result, nil
}

func (r *planRepository) ListPrices(ctx context.Context, planID uuid.UUID) ([]*domain.Price, error) {
	var rows []Price
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND is_active = ?", planID, true).
		Order("amount").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Price, 0, len(rows))
	for i := range rows {
		result = append(result, mapPriceToDomain(&rows[i]))
	}
	return result, nil
}

func mapPriceToDomain(row *Price) *domain.Price {
	return &domain.Price{
		ID:         row.ID,
		PlanID:     row.PlanID,
		Currency:   row.Currency,
		Amount:     row.Amount,
		PeriodDays: row.PeriodDays,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
	}
}
