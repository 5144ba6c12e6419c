package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

type paymentTokenRepository struct {
	db *gorm.DB
}

// NewPaymentTokenRepository creates a payment token repository bound to the
// given session.
func NewPaymentTokenRepository(db *gorm.DB) repo.PaymentTokenRepository {
	return &paymentTokenRepository{db: db}
}

func (r *paymentTokenRepository) Create(ctx context.Context, token *domain.PaymentToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	row := &PaymentToken{
		ID:         token.ID,
		UserID:     token.UserID,
		Token:      token.Token,
		CardMasked: token.CardMasked,
		ExpireAt:   token.ExpireAt,
	}
	if !token.Amount.IsZero() {
		amount := token.Amount
		row.Amount = &amount
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	token.CreatedAt = row.CreatedAt
	return nil
}

func (r *paymentTokenRepository) LatestForCard(ctx context.Context, userID uuid.UUID, cardMasked string) (*domain.PaymentToken, error) {
	var row PaymentToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND card_masked = ?", userID, cardMasked).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	token := &domain.PaymentToken{
		ID:         row.ID,
		UserID:     row.UserID,
		Token:      row.Token,
		CardMasked: row.CardMasked,
		ExpireAt:   row.ExpireAt,
		CreatedAt:  row.CreatedAt,
	}
	if row.Amount != nil {
		token.Amount = *row.Amount
	}
	return token, nil
}
