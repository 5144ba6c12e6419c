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

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository bound to the
// given session.
func NewTransactionRepository(db *gorm.DB) repo.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Status == "" {
		tx.Status = domain.StatusPending
	}
	row := mapTransactionToModel(tx)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		// The partial unique index on completed item purchases rejects a
		// second completed transfer for the same (buyer, item).
		if errors.Is(err, gorm.ErrDuplicatedKey) && tx.ItemID != nil && tx.Status == domain.StatusCompleted {
			return domain.ErrAlreadyPurchased
		}
		return err
	}
	tx.CreatedAt = row.CreatedAt
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var row Transaction
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapTransactionToDomain(&row), nil
}

func (r *transactionRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	var row Transaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapTransactionToDomain(&row), nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, mapTransactionToDomain(&rows[i]))
	}
	return result, nil
}

// UpdateStatus guards the lifecycle in the UPDATE itself: only a pending row
// matches, so a record already in a terminal state is left untouched and the
// caller gets domain.ErrInvalidTransition. This is what makes callback
// re-delivery safe to detect.
func (r *transactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, update repo.TransactionUpdate) error {
	if !status.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	updates := map[string]any{"status": string(status), "updated_at": time.Now()}
	if update.PaymentID != nil {
		updates["payment_id"] = *update.PaymentID
	}
	if update.GatewayResponse != nil {
		updates["gateway_response"] = *update.GatewayResponse
	}
	if update.SubscriptionID != nil {
		updates["subscription_id"] = *update.SubscriptionID
	}

	res := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Updates(updates)
	if res.Error != nil {
		// Completing a pending card purchase of an item the buyer already
		// owns trips the completed-purchase index here.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyPurchased
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Transaction{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrTransactionNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *transactionRepository) ExistsCompletedPurchase(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("user_id = ? AND item_id = ? AND status = ?", userID, itemID, string(domain.StatusCompleted)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func mapTransactionToModel(tx *domain.Transaction) *Transaction {
	row := &Transaction{
		ID:              tx.ID,
		UserID:          tx.UserID,
		Currency:        tx.Currency,
		Amount:          tx.Amount,
		Type:            string(tx.Type),
		Source:          string(tx.Source),
		Status:          string(tx.Status),
		PaymentID:       tx.PaymentID,
		GatewayResponse: tx.GatewayResponse,
		SubscriptionID:  tx.SubscriptionID,
		PriceID:         tx.PriceID,
		ItemID:          tx.ItemID,
	}
	if tx.OrderID != "" {
		orderID := tx.OrderID
		row.OrderID = &orderID
	}
	return row
}

func mapTransactionToDomain(row *Transaction) *domain.Transaction {
	tx := &domain.Transaction{
		ID:              row.ID,
		UserID:          row.UserID,
		Currency:        row.Currency,
		Amount:          row.Amount,
		Type:            domain.TransactionType(row.Type),
		Source:          domain.FundingSource(row.Source),
		Status:          domain.TransactionStatus(row.Status),
		PaymentID:       row.PaymentID,
		GatewayResponse: row.GatewayResponse,
		SubscriptionID:  row.SubscriptionID,
		PriceID:         row.PriceID,
		ItemID:          row.ItemID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.OrderID != nil {
		tx.OrderID = *row.OrderID
	}
	return tx
}
