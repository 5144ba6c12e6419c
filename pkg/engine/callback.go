package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/gateway"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/repository"
)

// errReplay aborts the side-effect transaction when another writer finalized
// the record first. It never leaves HandleCallback.
var errReplay = errors.New("record already finalized")

// HandleCallback processes a gateway webhook. The signature is verified
// before anything else; an unknown order id is domain.ErrTransactionNotFound;
// a callback for an already-terminal record is an idempotent no-op — the
// gateway retries callbacks and every retry after the first must succeed
// without side effects.
func (e *Engine) HandleCallback(ctx context.Context, msg gateway.SignedMessage) (*domain.Transaction, error) {
	var payload gateway.CallbackPayload
	if err := e.gateway.Protocol().Decode(msg, &payload); err != nil {
		return nil, err
	}

	txs, err := e.uow.Transactions()
	if err != nil {
		return nil, err
	}
	record, err := txs.GetByOrderID(ctx, payload.OrderID)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		e.logger.Info("callback replay ignored", "order_id", record.OrderID, "status", record.Status)
		return record, nil
	}

	status := gateway.NormalizeStatus(payload.OperationStatus)
	if status == domain.StatusPending {
		return record, nil
	}

	raw, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}
	rawStr := string(raw)

	var createdSub *domain.Subscription
	err = e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		update := repository.TransactionUpdate{
			PaymentID:       &payload.PaymentID,
			GatewayResponse: &rawStr,
		}

		if status == domain.StatusCompleted {
			if payload.RecurrentToken != "" {
				tokens, err := uow.PaymentTokens()
				if err != nil {
					return err
				}
				if err := tokens.Create(ctx, &domain.PaymentToken{
					UserID:     record.UserID,
					Token:      payload.RecurrentToken,
					CardMasked: payload.PayerInfo.PanMasked,
					Amount:     record.Amount,
				}); err != nil {
					return err
				}
			}

			// Top-ups credit the wallet here. The pay_ prefix is the guard:
			// recurrent_ orders were charged off a token and must not credit.
			if record.Type == domain.TypeDeposit && strings.HasPrefix(record.OrderID, gateway.OrderPrefixPay) {
				wallets, err := uow.Wallets()
				if err != nil {
					return err
				}
				if err := wallets.Credit(ctx, record.UserID, record.Currency, record.Amount); err != nil {
					return err
				}
			}

			if record.Type == domain.TypeSubscription && record.PriceID != nil && record.SubscriptionID == nil {
				sub, err := e.createSubscriptionPeriod(ctx, uow, record, payload.PayerInfo.PanMasked)
				if err != nil {
					return err
				}
				createdSub = sub
				update.SubscriptionID = &sub.ID
			}
		}

		txs, err := uow.Transactions()
		if err != nil {
			return err
		}
		if err := txs.UpdateStatus(ctx, record.ID, status, update); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return errReplay
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errReplay) {
		e.logger.Info("callback lost finalize race, treated as replay", "order_id", record.OrderID)
		return txs.GetByOrderID(ctx, payload.OrderID)
	}
	if err != nil {
		return nil, err
	}

	record.Status = status
	record.PaymentID = payload.PaymentID
	record.GatewayResponse = rawStr
	if createdSub != nil {
		record.SubscriptionID = &createdSub.ID
	}

	e.settleSideEffects(ctx, record, createdSub, payload.OperationStatus)
	return record, nil
}

// createSubscriptionPeriod opens the period a completed subscription charge
// paid for.
func (e *Engine) createSubscriptionPeriod(ctx context.Context, uow repository.UnitOfWork, record *domain.Transaction, cardMasked string) (*domain.Subscription, error) {
	plans, err := uow.Plans()
	if err != nil {
		return nil, err
	}
	price, err := plans.GetPrice(ctx, *record.PriceID)
	if err != nil {
		return nil, err
	}
	subs, err := uow.Subscriptions()
	if err != nil {
		return nil, err
	}

	// When the charge renews an existing period the new one starts where the
	// old one ends, so a renewal settled early never shortens access. A
	// recurrent charge payload carries no card, so the prior period also
	// supplies the masked card that keeps the subscription renewable.
	start := e.now()
	prior, err := subs.ActiveForUser(ctx, record.UserID, start)
	if err != nil && !errors.Is(err, domain.ErrSubscriptionNotFound) {
		return nil, err
	}
	if prior != nil && prior.PlanID == price.PlanID {
		if prior.ExpiredAt.After(start) {
			start = prior.ExpiredAt
		}
		if cardMasked == "" {
			cardMasked = prior.CardMasked
		}
	}

	sub := &domain.Subscription{
		UserID:        record.UserID,
		PlanID:        price.PlanID,
		PriceID:       price.ID,
		IsAutoRenewal: true,
		PaymentMethod: domain.SourceCard,
		CardMasked:    cardMasked,
		ExpiredAt:     start.Add(periodOf(price)),
	}
	if err := subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// settleSideEffects emits notifications and pays the seller for hosted
// checkout item purchases. Runs after the record is terminal; a seller
// payout failure is reconciliation work, not a callback failure.
func (e *Engine) settleSideEffects(ctx context.Context, record *domain.Transaction, sub *domain.Subscription, rawStatus string) {
	if record.Status != domain.StatusCompleted {
		switch record.Type {
		case domain.TypeTransfer:
			e.notify(ctx, notifier.KindPurchaseFailed, record, rawStatus)
		case domain.TypeSubscription:
			e.notify(ctx, notifier.KindRenewalFailed, record, rawStatus)
		default:
			e.notify(ctx, notifier.KindPaymentError, record, rawStatus)
		}
		return
	}

	switch record.Type {
	case domain.TypeDeposit:
		e.notify(ctx, notifier.KindTopUpCompleted, record, "")
	case domain.TypeTransfer:
		if record.ItemID != nil {
			item, err := e.directory.Item(ctx, *record.ItemID)
			if err != nil {
				e.logger.Error("item lookup failed after capture, seller credit pending reconciliation",
					"order_id", record.OrderID,
					"item_id", *record.ItemID,
					"error", err,
				)
			} else if err := e.creditSeller(ctx, item, record); err != nil {
				e.logger.Error("seller credit failed after capture, needs reconciliation",
					"order_id", record.OrderID,
					"seller_id", item.SellerID,
					"error", err,
				)
			}
		}
		e.notify(ctx, notifier.KindPurchaseSucceeded, record, "")
	case domain.TypeSubscription:
		if sub != nil && !strings.HasPrefix(record.OrderID, gateway.OrderPrefixRecurrent) {
			e.notify(ctx, notifier.KindSubscriptionCreated, record, "")
		} else {
			e.notify(ctx, notifier.KindSubscriptionRenewed, record, "")
		}
	}
}
