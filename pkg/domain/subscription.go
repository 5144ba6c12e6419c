package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is a subscription product.
type Plan struct {
	ID        uuid.UUID
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Price is one tier of a plan: an amount for a period length.
type Price struct {
	ID         uuid.UUID
	PlanID     uuid.UUID
	Currency   string
	Amount     decimal.Decimal
	PeriodDays int
	IsActive   bool
	CreatedAt  time.Time
}

// Subscription is one paid period of a plan for a user. A user may hold
// multiple historical rows; "active" means ExpiredAt is in the future.
// Cancellation flips IsAutoRenewal off and stamps CancelledAt but never
// shortens ExpiredAt: access persists until the paid period ends.
type Subscription struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PlanID        uuid.UUID
	PriceID       uuid.UUID
	IsAutoRenewal bool
	PaymentMethod FundingSource
	CardMasked    string
	ExpiredAt     time.Time
	CancelledAt   *time.Time
	CreatedAt     time.Time
}

// IsActive reports whether the subscription grants access at the given time.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.ExpiredAt.After(now)
}

// PaymentToken is a gateway-issued recurring-charge credential, stored when
// the gateway returns one after a successful card charge. Rows are append
// only; the newest row per masked card is the one used for repeat charges.
type PaymentToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Token      string
	CardMasked string
	Amount     decimal.Decimal
	ExpireAt   *time.Time
	CreatedAt  time.Time
}
