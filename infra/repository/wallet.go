package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a wallet repository bound to the given session.
func NewWalletRepository(db *gorm.DB) repo.WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Get(ctx context.Context, userID uuid.UUID, currency string) (*domain.WalletBalance, error) {
	var row WalletBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapWalletToDomain(&row), nil
}

func (r *walletRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WalletBalance, error) {
	var rows []WalletBalance
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("currency").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.WalletBalance, 0, len(rows))
	for i := range rows {
		result = append(result, mapWalletToDomain(&rows[i]))
	}
	return result, nil
}

func (r *walletRepository) Seed(ctx context.Context, userID uuid.UUID, currencies []string) error {
	rows := make([]WalletBalance, 0, len(currencies))
	for _, currency := range currencies {
		rows = append(rows, WalletBalance{
			ID:       uuid.New(),
			UserID:   userID,
			Currency: currency,
			Amount:   decimal.Zero,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

// Debit decrements the balance with the sufficiency guard in the UPDATE
// itself: the row is locked for the duration of the statement, so two
// concurrent debits are serialized by the database and the balance can never
// go negative.
func (r *walletRepository) Debit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrAmountMustBePositive
	}
	res := r.db.WithContext(ctx).
		Model(&WalletBalance{}).
		Where("user_id = ? AND currency = ? AND amount >= ?", userID, currency, amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a short balance from a missing row.
		var count int64
		if err := r.db.WithContext(ctx).Model(&WalletBalance{}).
			Where("user_id = ? AND currency = ?", userID, currency).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrWalletNotFound
		}
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *walletRepository) Credit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrAmountMustBePositive
	}
	res := r.db.WithContext(ctx).
		Model(&WalletBalance{}).
		Where("user_id = ? AND currency = ?", userID, currency).
		Update("amount", gorm.Expr("amount + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Lazily create the row on first credit.
		row := WalletBalance{
			ID:       uuid.New(),
			UserID:   userID,
			Currency: currency,
			Amount:   amount,
		}
		return r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
				DoUpdates: clause.Assignments(map[string]any{"amount": gorm.Expr("wallet_balances.amount + ?", amount)}),
			}).
			Create(&row).Error
	}
	return nil
}

func mapWalletToDomain(row *WalletBalance) *domain.WalletBalance {
	return &domain.WalletBalance{
		ID:        row.ID,
		UserID:    row.UserID,
		Currency:  row.Currency,
		Amount:    row.Amount,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
