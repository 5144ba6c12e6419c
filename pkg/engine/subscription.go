package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/gateway"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/repository"
)

// Subscribe starts a subscription on a price tier. Wallet funding settles
// synchronously; card funding opens hosted checkout and the period is
// created by the callback.
func (e *Engine) Subscribe(ctx context.Context, req SubscribeRequest) (*Outcome, error) {
	plans, err := e.uow.Plans()
	if err != nil {
		return nil, err
	}
	price, err := plans.GetPrice(ctx, req.PriceID)
	if err != nil {
		return nil, err
	}
	if !price.IsActive {
		return nil, domain.ErrPlanNotFound
	}

	switch req.Source {
	case domain.SourceWallet:
		return e.subscribeFromWallet(ctx, req.UserID, price)
	case domain.SourceCard:
		return e.subscribeWithCheckout(ctx, req.UserID, price)
	default:
		return nil, fmt.Errorf("%w: unknown funding source %q", domain.ErrValidation, req.Source)
	}
}

func (e *Engine) subscribeFromWallet(ctx context.Context, userID uuid.UUID, price *domain.Price) (*Outcome, error) {
	outcome := &Outcome{}
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		wallets, err := uow.Wallets()
		if err != nil {
			return err
		}
		if err := wallets.Debit(ctx, userID, price.Currency, price.Amount); err != nil {
			return err
		}

		subs, err := uow.Subscriptions()
		if err != nil {
			return err
		}
		outcome.Subscription = &domain.Subscription{
			UserID:        userID,
			PlanID:        price.PlanID,
			PriceID:       price.ID,
			IsAutoRenewal: true,
			PaymentMethod: domain.SourceWallet,
			ExpiredAt:     e.now().Add(periodOf(price)),
		}
		if err := subs.Create(ctx, outcome.Subscription); err != nil {
			return err
		}

		txs, err := uow.Transactions()
		if err != nil {
			return err
		}
		priceID := price.ID
		outcome.Transaction = &domain.Transaction{
			UserID:         userID,
			Currency:       price.Currency,
			Amount:         price.Amount,
			Type:           domain.TypeSubscription,
			Source:         domain.SourceWallet,
			Status:         domain.StatusCompleted,
			SubscriptionID: &outcome.Subscription.ID,
			PriceID:        &priceID,
		}
		return txs.Create(ctx, outcome.Transaction)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("subscription started from wallet",
		"user_id", userID,
		"plan_id", price.PlanID,
		"expires_at", outcome.Subscription.ExpiredAt,
	)
	e.notify(ctx, notifier.KindSubscriptionCreated, outcome.Transaction, "")
	return outcome, nil
}

func (e *Engine) subscribeWithCheckout(ctx context.Context, userID uuid.UUID, price *domain.Price) (*Outcome, error) {
	chargeReq := e.gateway.Builder().ChargeCreate(price.Amount, price.Currency, "subscription")
	priceID := price.ID
	record := &domain.Transaction{
		UserID:   userID,
		Currency: price.Currency,
		Amount:   price.Amount,
		Type:     domain.TypeSubscription,
		Source:   domain.SourceCard,
		Status:   domain.StatusPending,
		OrderID:  chargeReq.OrderID,
		PriceID:  &priceID,
	}
	txs, err := e.uow.Transactions()
	if err != nil {
		return nil, err
	}
	if err := txs.Create(ctx, record); err != nil {
		return nil, err
	}

	payload, err := e.gateway.CreateCharge(ctx, chargeReq)
	if err != nil {
		e.notify(ctx, notifier.KindPaymentError, record, err.Error())
		return nil, err
	}
	return &Outcome{Transaction: record, PaymentPageUrl: payload.PaymentPageUrl}, nil
}

// CancelSubscription turns auto-renewal off and stamps the cancellation.
// The paid period keeps granting access until it expires.
func (e *Engine) CancelSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	subs, err := e.uow.Subscriptions()
	if err != nil {
		return err
	}
	sub, err := subs.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return domain.ErrSubscriptionNotFound
	}
	if err := subs.Cancel(ctx, subscriptionID, e.now()); err != nil {
		return err
	}
	e.events.Notify(ctx, notifier.Event{
		Kind:           notifier.KindSubscriptionCancel,
		UserID:         userID,
		SubscriptionID: &subscriptionID,
		At:             e.now(),
	})
	return nil
}

// RenewSubscription charges the stored token of a card-funded subscription
// and, on success, opens the next period starting where the old one ends.
// The scheduler drives this; any error means the renewal attempt failed. A
// charge the gateway reports as still in progress is not an error: the record
// stays pending and the callback opens the period.
func (e *Engine) RenewSubscription(ctx context.Context, sub *domain.Subscription) (*Outcome, error) {
	plans, err := e.uow.Plans()
	if err != nil {
		return nil, err
	}
	price, err := plans.GetPrice(ctx, sub.PriceID)
	if err != nil {
		return nil, err
	}

	tokens, err := e.uow.PaymentTokens()
	if err != nil {
		return nil, err
	}
	token, err := tokens.LatestForCard(ctx, sub.UserID, sub.CardMasked)
	if err != nil {
		return nil, err
	}

	chargeReq := e.gateway.Builder().ChargeRecurrent(token.Token, price.Amount, price.Currency, "subscription renewal")
	priceID := price.ID
	record := &domain.Transaction{
		UserID:   sub.UserID,
		Currency: price.Currency,
		Amount:   price.Amount,
		Type:     domain.TypeSubscription,
		Source:   domain.SourceCard,
		Status:   domain.StatusPending,
		OrderID:  chargeReq.OrderID,
		PriceID:  &priceID,
	}
	txs, err := e.uow.Transactions()
	if err != nil {
		return nil, err
	}
	if err := txs.Create(ctx, record); err != nil {
		return nil, err
	}

	payload, err := e.gateway.ChargeRecurrent(ctx, chargeReq)
	if err != nil {
		e.notify(ctx, notifier.KindRenewalFailed, record, err.Error())
		return nil, err
	}
	status := gateway.NormalizeStatus(payload.OperationStatus)
	if status == domain.StatusPending {
		// The gateway has not decided yet; the callback or a status poll
		// settles the record and opens the period.
		e.logger.Info("renewal charge pending, waiting for callback",
			"order_id", record.OrderID,
			"gateway_status", payload.OperationStatus,
		)
		return &Outcome{Transaction: record}, nil
	}
	if status != domain.StatusCompleted {
		if err := e.finalize(ctx, record, status, payload); err != nil {
			return nil, err
		}
		e.notify(ctx, notifier.KindRenewalFailed, record, payload.OperationStatus)
		return nil, fmt.Errorf("%w: renewal charge returned %q", domain.ErrGateway, payload.OperationStatus)
	}

	outcome := &Outcome{Transaction: record}
	err = e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		subs, err := uow.Subscriptions()
		if err != nil {
			return err
		}
		// The next period starts where the current one ends, so renewing a
		// day early never shortens access.
		start := sub.ExpiredAt
		if start.Before(e.now()) {
			start = e.now()
		}
		outcome.Subscription = &domain.Subscription{
			UserID:        sub.UserID,
			PlanID:        sub.PlanID,
			PriceID:       sub.PriceID,
			IsAutoRenewal: true,
			PaymentMethod: domain.SourceCard,
			CardMasked:    sub.CardMasked,
			ExpiredAt:     start.Add(periodOf(price)),
		}
		if err := subs.Create(ctx, outcome.Subscription); err != nil {
			return err
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		rawStr := string(raw)
		txs, err := uow.Transactions()
		if err != nil {
			return err
		}
		return txs.UpdateStatus(ctx, record.ID, domain.StatusCompleted, repository.TransactionUpdate{
			PaymentID:       &payload.PaymentID,
			GatewayResponse: &rawStr,
			SubscriptionID:  &outcome.Subscription.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	record.Status = domain.StatusCompleted
	record.SubscriptionID = &outcome.Subscription.ID
	e.notify(ctx, notifier.KindSubscriptionRenewed, record, "")
	return outcome, nil
}

func periodOf(price *domain.Price) time.Duration {
	return time.Duration(price.PeriodDays) * 24 * time.Hour
}
