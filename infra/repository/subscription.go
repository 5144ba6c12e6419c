package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository bound to the
// given session.
func NewSubscriptionRepository(db *gorm.DB) repo.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	row := mapSubscriptionToModel(sub)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	sub.CreatedAt = row.CreatedAt
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	var row Subscription
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapSubscriptionToDomain(&row), nil
}

func (r *subscriptionRepository) ActiveForUser(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.Subscription, error) {
	var row Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expired_at > ?", userID, at).
		Order("expired_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapSubscriptionToDomain(&row), nil
}

func (r *subscriptionRepository) ExpiringWithin(ctx context.Context, from, until time.Time) ([]*domain.Subscription, error) {
	var rows []Subscription
	err := r.db.WithContext(ctx).
		Where("is_auto_renewal = ? AND expired_at > ? AND expired_at <= ?", true, from, until).
		Order("expired_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Subscription, 0, len(rows))
	for i := range rows {
		result = append(result, mapSubscriptionToDomain(&rows[i]))
	}
	return result, nil
}

func (r *subscriptionRepository) DisableAutoRenewal(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("id = ?", id).
		Update("is_auto_renewal", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *subscriptionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_auto_renewal": false, "cancelled_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *subscriptionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expired_at < ?", cutoff).
		Delete(&Subscription{})
	return res.RowsAffected, res.Error
}

func mapSubscriptionToModel(sub *domain.Subscription) *Subscription {
	return &Subscription{
		ID:            sub.ID,
		UserID:        sub.UserID,
		PlanID:        sub.PlanID,
		PriceID:       sub.PriceID,
		IsAutoRenewal: sub.IsAutoRenewal,
		PaymentMethod: string(sub.PaymentMethod),
		CardMasked:    sub.CardMasked,
		ExpiredAt:     sub.ExpiredAt,
		CancelledAt:   sub.CancelledAt,
	}
}

func mapSubscriptionToDomain(row *Subscription) *domain.Subscription {
	return &domain.Subscription{
		ID:            row.ID,
		UserID:        row.UserID,
		PlanID:        row.PlanID,
		PriceID:       row.PriceID,
		IsAutoRenewal: row.IsAutoRenewal,
		PaymentMethod: domain.FundingSource(row.PaymentMethod),
		CardMasked:    row.CardMasked,
		ExpiredAt:     row.ExpiredAt,
		CancelledAt:   row.CancelledAt,
		CreatedAt:     row.CreatedAt,
	}
}
