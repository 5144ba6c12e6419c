// Package repository contains the gorm implementations of the data access
// contracts in pkg/repository, plus the UnitOfWork binding them to one
// database transaction.
package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is the transactions table: the append-only record of every
// money movement attempt. order_id is the idempotency key for gateway
// callbacks and therefore unique. The partial unique index on
// (user_id, item_id) over completed transfers is what makes "buy once" hold
// under concurrent purchases: the second commit violates it.
type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null;uniqueIndex:idx_completed_item_purchase,priority:1,where:type = 'transfer' AND status = 'completed'"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'KZT'"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Type            string          `gorm:"type:varchar(16);not null"`
	Source          string          `gorm:"type:varchar(8);not null"`
	Status          string          `gorm:"type:varchar(16);not null;default:'pending';index"`
	OrderID         *string         `gorm:"type:varchar(64);uniqueIndex"`
	PaymentID       string          `gorm:"type:varchar(64)"`
	GatewayResponse string          `gorm:"type:text"`
	SubscriptionID  *uuid.UUID      `gorm:"type:uuid"`
	PriceID         *uuid.UUID      `gorm:"type:uuid"`
	ItemID          *uuid.UUID      `gorm:"type:uuid;index;uniqueIndex:idx_completed_item_purchase,priority:2"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Transaction) TableName() string { return "transactions" }

// WalletBalance is the wallet_balances table. One row per user per currency.
type WalletBalance struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_user_currency"`
	Currency  string          `gorm:"type:varchar(3);not null;uniqueIndex:idx_wallet_user_currency"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WalletBalance) TableName() string { return "wallet_balances" }

// Subscription is the subscriptions table.
type Subscription struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null"`
	PlanID        uuid.UUID  `gorm:"type:uuid;not null"`
	PriceID       uuid.UUID  `gorm:"type:uuid;not null"`
	IsAutoRenewal bool       `gorm:"not null;default:false"`
	PaymentMethod string     `gorm:"type:varchar(8);not null"`
	CardMasked    string     `gorm:"type:varchar(32)"`
	ExpiredAt     time.Time  `gorm:"index;not null"`
	CancelledAt   *time.Time
	CreatedAt     time.Time
}

func (Subscription) TableName() string { return "subscriptions" }

// Plan is the plans table.
type Plan struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(128);not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (Plan) TableName() string { return "plans" }

// Price is the prices table: one tier of a plan.
type Price struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PlanID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Currency   string          `gorm:"type:varchar(3);not null;default:'KZT'"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	PeriodDays int             `gorm:"not null;default:30"`
	IsActive   bool            `gorm:"not null;default:true"`
	CreatedAt  time.Time
}

func (Price) TableName() string { return "prices" }

// FeeRule is the fee_rules table. History is append-only: a new rule
// deactivates its predecessor, it never overwrites it.
type FeeRule struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Currency   string           `gorm:"type:varchar(3);not null;index"`
	Percentage decimal.Decimal  `gorm:"type:decimal(5,2);not null"`
	MinAmount  *decimal.Decimal `gorm:"type:decimal(20,2)"`
	MaxAmount  *decimal.Decimal `gorm:"type:decimal(20,2)"`
	IsActive   bool             `gorm:"not null;default:true;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (FeeRule) TableName() string { return "fee_rules" }

// PaymentToken is the payment_tokens table. Append-only; the newest row per
// (user, masked card) is the token used for repeat charges.
type PaymentToken struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID        `gorm:"type:uuid;index;not null"`
	Token      string           `gorm:"type:text;not null"`
	CardMasked string           `gorm:"type:varchar(32);index;not null"`
	Amount     *decimal.Decimal `gorm:"type:decimal(20,2)"`
	ExpireAt   *time.Time
	CreatedAt  time.Time
}

func (PaymentToken) TableName() string { return "payment_tokens" }

// Migrate creates or updates all billing tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Transaction{},
		&WalletBalance{},
		&Subscription{},
		&Plan{},
		&Price{},
		&FeeRule{},
		&PaymentToken{},
	)
}
