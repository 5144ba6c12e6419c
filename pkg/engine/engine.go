// Package engine orchestrates payments: item purchases from wallet, saved
// card token or hosted checkout, wallet top-ups, subscription charges, and
// the gateway callback that finalizes asynchronous flows. Every money
// movement leaves a transaction record; records are created pending before
// the gateway is called and reach a terminal status exactly once.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/directory"
	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/gateway"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/repository"
)

// Gateway is the slice of the gateway client the engine drives. Satisfied by
// *gateway.Client; tests substitute a mock.
type Gateway interface {
	CreateCharge(ctx context.Context, req gateway.ChargeCreateRequest) (*gateway.CallbackPayload, error)
	ChargeRecurrent(ctx context.Context, req gateway.ChargeRecurrentRequest) (*gateway.CallbackPayload, error)
	ChargeStatus(ctx context.Context, req gateway.ChargeStatusRequest) (*gateway.CallbackPayload, error)
	Builder() *gateway.Builder
	Protocol() *gateway.Protocol
}

// Engine is the payment orchestrator.
type Engine struct {
	uow       repository.UnitOfWork
	gateway   Gateway
	directory directory.Service
	events    notifier.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Engine.
func New(
	uow repository.UnitOfWork,
	gw Gateway,
	dir directory.Service,
	events notifier.Notifier,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		uow:       uow,
		gateway:   gw,
		directory: dir,
		events:    events,
		logger:    logger.With("component", "engine"),
		now:       time.Now,
	}
}

// PurchaseRequest asks to buy an item. Source selects the funding path;
// with SourceCard a non-empty CardMasked charges the user's newest saved
// token for that card, an empty one opens hosted checkout.
type PurchaseRequest struct {
	UserID     uuid.UUID
	ItemID     uuid.UUID
	Source     domain.FundingSource
	CardMasked string
}

// TopUpRequest asks to add funds to the wallet via hosted checkout.
type TopUpRequest struct {
	UserID   uuid.UUID
	Currency string
	Amount   decimal.Decimal
}

// SubscribeRequest asks to start a subscription on a price tier.
type SubscribeRequest struct {
	UserID     uuid.UUID
	PriceID    uuid.UUID
	Source     domain.FundingSource
	CardMasked string
}

// Outcome is the result of an engine operation. Wallet-funded operations
// complete synchronously; card-funded ones return a pending transaction and,
// for hosted checkout, the page to redirect the payer to.
type Outcome struct {
	Transaction    *domain.Transaction
	Fee            *domain.FeeBreakdown
	Subscription   *domain.Subscription
	PaymentPageUrl string
}

// Completed reports whether the operation already reached completed.
func (o *Outcome) Completed() bool {
	return o.Transaction != nil && o.Transaction.Status == domain.StatusCompleted
}

func (e *Engine) notify(ctx context.Context, kind notifier.Kind, tx *domain.Transaction, message string) {
	event := notifier.Event{
		Kind:    kind,
		Message: message,
		At:      e.now(),
	}
	if tx != nil {
		event.UserID = tx.UserID
		event.TransactionID = &tx.ID
		event.Amount = tx.Amount
		event.Currency = tx.Currency
		event.SubscriptionID = tx.SubscriptionID
	}
	e.events.Notify(ctx, event)
}
