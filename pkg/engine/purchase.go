package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/directory"
	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/fees"
	"github.com/tolempay/billing/pkg/gateway"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/repository"
)

// Purchase buys an item for the user. Preconditions run first: the item must
// exist and be active, the buyer must not already own it, and the seller must
// be in good standing. Then the funding path takes over.
func (e *Engine) Purchase(ctx context.Context, req PurchaseRequest) (*Outcome, error) {
	item, err := e.checkPurchasable(ctx, req.UserID, req.ItemID)
	if err != nil {
		return nil, err
	}

	switch req.Source {
	case domain.SourceWallet:
		return e.purchaseFromWallet(ctx, req.UserID, item)
	case domain.SourceCard:
		if req.CardMasked != "" {
			return e.purchaseWithToken(ctx, req.UserID, req.CardMasked, item)
		}
		return e.purchaseWithCheckout(ctx, req.UserID, item)
	default:
		return nil, fmt.Errorf("%w: unknown funding source %q", domain.ErrValidation, req.Source)
	}
}

func (e *Engine) checkPurchasable(ctx context.Context, userID, itemID uuid.UUID) (*directory.Item, error) {
	item, err := e.directory.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, domain.ErrItemNotFound
	}

	standing, err := e.directory.HasActiveSubscription(ctx, item.SellerID)
	if err != nil {
		return nil, err
	}
	if !standing {
		return nil, domain.ErrSellerUnavailable
	}

	txs, err := e.uow.Transactions()
	if err != nil {
		return nil, err
	}
	owned, err := txs.ExistsCompletedPurchase(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, domain.ErrAlreadyPurchased
	}
	return item, nil
}

// purchaseFromWallet moves the money in one transaction: debit the buyer,
// compute the platform fee from the active rule, credit the seller the
// remainder, and record the completed transfer. Any failure rolls the whole
// movement back, so the buyer is never debited without the seller credited.
func (e *Engine) purchaseFromWallet(ctx context.Context, userID uuid.UUID, item *directory.Item) (*Outcome, error) {
	itemID := item.ID
	outcome := &Outcome{}
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.Transactions()
		if err != nil {
			return err
		}
		// The precondition check ran outside this transaction; a concurrent
		// purchase may have committed since. Re-check before moving money.
		owned, err := txs.ExistsCompletedPurchase(ctx, userID, itemID)
		if err != nil {
			return err
		}
		if owned {
			return domain.ErrAlreadyPurchased
		}

		wallets, err := uow.Wallets()
		if err != nil {
			return err
		}
		if err := wallets.Debit(ctx, userID, item.Currency, item.Price); err != nil {
			return err
		}

		rules, err := uow.FeeRules()
		if err != nil {
			return err
		}
		rule, err := rules.ActiveForCurrency(ctx, item.Currency)
		if err != nil {
			return err
		}
		if rule != nil {
			outcome.Fee = fees.Apply(item.Price, rule)
		} else {
			outcome.Fee = &domain.FeeBreakdown{
				OriginalAmount: item.Price,
				FeeAmount:      decimal.Zero,
				FinalAmount:    item.Price,
				FeePercentage:  decimal.Zero,
			}
		}

		if err := wallets.Credit(ctx, item.SellerID, item.Currency, outcome.Fee.FinalAmount); err != nil {
			return err
		}

		outcome.Transaction = &domain.Transaction{
			UserID:   userID,
			Currency: item.Currency,
			Amount:   item.Price,
			Type:     domain.TypeTransfer,
			Source:   domain.SourceWallet,
			Status:   domain.StatusCompleted,
			ItemID:   &itemID,
		}
		return txs.Create(ctx, outcome.Transaction)
	})
	if err != nil {
		e.notify(ctx, notifier.KindPurchaseFailed, &domain.Transaction{
			UserID: userID, Currency: item.Currency, Amount: item.Price,
		}, err.Error())
		return nil, err
	}

	e.logger.Info("wallet purchase completed",
		"user_id", userID,
		"item_id", itemID,
		"amount", item.Price.String(),
		"fee", outcome.Fee.FeeAmount.String(),
	)
	e.notify(ctx, notifier.KindPurchaseSucceeded, outcome.Transaction, "")
	return outcome, nil
}

// purchaseWithToken charges the newest saved token for the card. The record
// is created pending before the gateway call; a transport failure leaves it
// pending for the callback or a status poll to resolve.
func (e *Engine) purchaseWithToken(ctx context.Context, userID uuid.UUID, cardMasked string, item *directory.Item) (*Outcome, error) {
	tokens, err := e.uow.PaymentTokens()
	if err != nil {
		return nil, err
	}
	token, err := tokens.LatestForCard(ctx, userID, cardMasked)
	if err != nil {
		return nil, err
	}

	chargeReq := e.gateway.Builder().ChargeRecurrent(token.Token, item.Price, item.Currency, "item purchase")
	itemID := item.ID
	record := &domain.Transaction{
		UserID:   userID,
		Currency: item.Currency,
		Amount:   item.Price,
		Type:     domain.TypeTransfer,
		Source:   domain.SourceCard,
		Status:   domain.StatusPending,
		OrderID:  chargeReq.OrderID,
		ItemID:   &itemID,
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
		e.logger.Error("token charge failed, record left pending",
			"order_id", record.OrderID,
			"error", err,
		)
		e.notify(ctx, notifier.KindPaymentError, record, err.Error())
		return nil, err
	}

	status := gateway.NormalizeStatus(payload.OperationStatus)
	if status == domain.StatusPending {
		return &Outcome{Transaction: record}, nil
	}

	if err := e.finalize(ctx, record, status, payload); err != nil {
		return nil, err
	}
	record.Status = status
	record.PaymentID = payload.PaymentID

	if status == domain.StatusCompleted {
		// The buyer is already captured; a failed seller payout must not
		// unwind the purchase. It is logged for reconciliation instead.
		if err := e.creditSeller(ctx, item, record); err != nil {
			e.logger.Error("seller credit failed after capture, needs reconciliation",
				"order_id", record.OrderID,
				"seller_id", item.SellerID,
				"error", err,
			)
			e.notify(ctx, notifier.KindPaymentError, record, "seller credit pending reconciliation")
		}
		e.notify(ctx, notifier.KindPurchaseSucceeded, record, "")
	} else {
		e.notify(ctx, notifier.KindPurchaseFailed, record, payload.OperationStatus)
	}
	return &Outcome{Transaction: record}, nil
}

// purchaseWithCheckout opens a hosted checkout session. The transaction stays
// pending until the gateway calls back.
func (e *Engine) purchaseWithCheckout(ctx context.Context, userID uuid.UUID, item *directory.Item) (*Outcome, error) {
	chargeReq := e.gateway.Builder().ChargeCreate(item.Price, item.Currency, "item purchase")
	itemID := item.ID
	record := &domain.Transaction{
		UserID:   userID,
		Currency: item.Currency,
		Amount:   item.Price,
		Type:     domain.TypeTransfer,
		Source:   domain.SourceCard,
		Status:   domain.StatusPending,
		OrderID:  chargeReq.OrderID,
		ItemID:   &itemID,
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

// TopUp opens a hosted checkout session that credits the wallet on callback.
// The pay_ order id prefix is what later tells the callback path to credit.
func (e *Engine) TopUp(ctx context.Context, req TopUpRequest) (*Outcome, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrAmountMustBePositive
	}

	chargeReq := e.gateway.Builder().ChargeCreate(req.Amount, req.Currency, "wallet top-up")
	record := &domain.Transaction{
		UserID:   req.UserID,
		Currency: req.Currency,
		Amount:   req.Amount,
		Type:     domain.TypeDeposit,
		Source:   domain.SourceCard,
		Status:   domain.StatusPending,
		OrderID:  chargeReq.OrderID,
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

// finalize advances the record to a terminal status with the gateway
// evidence attached. A concurrent callback may have won the race; that is
// surfaced as domain.ErrInvalidTransition and treated by callers as settled.
func (e *Engine) finalize(ctx context.Context, record *domain.Transaction, status domain.TransactionStatus, payload *gateway.CallbackPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode gateway payload: %w", err)
	}
	rawStr := string(raw)

	txs, err := e.uow.Transactions()
	if err != nil {
		return err
	}
	err = txs.UpdateStatus(ctx, record.ID, status, repository.TransactionUpdate{
		PaymentID:       &payload.PaymentID,
		GatewayResponse: &rawStr,
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		e.logger.Warn("record already finalized by callback", "order_id", record.OrderID)
		return nil
	}
	return err
}

func (e *Engine) creditSeller(ctx context.Context, item *directory.Item, record *domain.Transaction) error {
	return e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		rules, err := uow.FeeRules()
		if err != nil {
			return err
		}
		rule, err := rules.ActiveForCurrency(ctx, item.Currency)
		if err != nil {
			return err
		}
		payout := record.Amount
		if rule != nil {
			payout = fees.Apply(record.Amount, rule).FinalAmount
		}
		wallets, err := uow.Wallets()
		if err != nil {
			return err
		}
		return wallets.Credit(ctx, item.SellerID, item.Currency, payout)
	})
}
