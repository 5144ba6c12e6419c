package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeRule is the platform's cut for one currency. Rules are append-only:
// creating a new rule deactivates the previous one rather than updating it
// in place, so at most one rule per currency is active at any time and the
// history stays auditable.
type FeeRule struct {
	ID         uuid.UUID
	Currency   string
	Percentage decimal.Decimal
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FeeBreakdown is the result of applying a fee rule to an amount.
type FeeBreakdown struct {
	OriginalAmount decimal.Decimal
	FeeAmount      decimal.Decimal
	FinalAmount    decimal.Decimal
	FeePercentage  decimal.Decimal
}
