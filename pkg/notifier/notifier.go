// Package notifier carries the engine's structured events to an external
// alerting sink. Delivery is fire-and-forget: a full or failing sink must
// never block or fail the payment operation that emitted the event.
package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies notification events.
type Kind string

const (
	KindPurchaseSucceeded   Kind = "purchase.succeeded"
	KindPurchaseFailed      Kind = "purchase.failed"
	KindTopUpCompleted      Kind = "topup.completed"
	KindSubscriptionCreated Kind = "subscription.created"
	KindSubscriptionCancel  Kind = "subscription.cancelled"
	KindSubscriptionRenewed Kind = "subscription.renewed"
	KindRenewalFailed       Kind = "subscription.renewal_failed"
	KindWalletOperation     Kind = "wallet.operation"
	KindPaymentError        Kind = "payment.error"
)

// Event is one structured notification.
type Event struct {
	Kind           Kind            `json:"kind"`
	UserID         uuid.UUID       `json:"user_id"`
	TransactionID  *uuid.UUID      `json:"transaction_id,omitempty"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	Message        string          `json:"message,omitempty"`
	At             time.Time       `json:"at"`
}

// Notifier delivers events best-effort. Implementations must return quickly
// and must not propagate delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
	Close() error
}
