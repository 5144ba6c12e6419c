// Package domain holds the core entities of the billing engine: transactions,
// wallet balances, subscriptions, fee rules, and payment tokens, together
// with the invariants that hold across every storage and transport layer.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the internal four-state transaction vocabulary.
// Gateway status strings are normalized onto it by the gateway package.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCanceled  TransactionStatus = "canceled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// TransactionType classifies what a transaction does to the wallet.
type TransactionType string

const (
	TypeDeposit      TransactionType = "deposit"
	TypeWithdraw     TransactionType = "withdraw"
	TypeTransfer     TransactionType = "transfer"
	TypeSubscription TransactionType = "subscription"
)

// FundingSource is where the money comes from.
type FundingSource string

const (
	SourceWallet FundingSource = "wallet"
	SourceCard   FundingSource = "card"
)

// Transaction is the durable record of one money movement attempt. It is
// created pending before any gateway call so a crashed process still leaves
// an auditable trace of intent, and reaches a terminal status at most once.
//
// Invariants:
//   - Amount is immutable after creation.
//   - OrderID is unique and is the idempotency key for gateway callbacks.
//   - pending is the only initial state; completed, failed and canceled are
//     terminal.
type Transaction struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Currency string
	Amount   decimal.Decimal
	Type     TransactionType
	Source   FundingSource
	Status   TransactionStatus

	// Gateway correlation. OrderID is set for every gateway-bound attempt;
	// PaymentID and GatewayResponse arrive with the response or callback.
	OrderID         string
	PaymentID       string
	GatewayResponse string

	// Optional links.
	SubscriptionID *uuid.UUID
	PriceID        *uuid.UUID
	ItemID         *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransition reports whether the transaction may move to the given status.
// Terminal states permit no outbound transitions; pending may move to any
// terminal state. pending → pending is not a transition.
func (t *Transaction) CanTransition(to TransactionStatus) bool {
	if t.Status.IsTerminal() {
		return false
	}
	return to.IsTerminal()
}

// Transition advances the transaction status, enforcing the lifecycle.
func (t *Transaction) Transition(to TransactionStatus) error {
	if !t.CanTransition(to) {
		return ErrInvalidTransition
	}
	t.Status = to
	return nil
}
