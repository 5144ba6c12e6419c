// Package fees computes the platform's cut of a transaction from the active
// fee rule of the transaction's currency, and manages the append-only rule
// history.
package fees

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/repository"
)

var hundred = decimal.NewFromInt(100)

// Calculator resolves the active fee rule for a currency and applies it.
type Calculator struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(uow repository.UnitOfWork, logger *slog.Logger) *Calculator {
	return &Calculator{uow: uow, logger: logger.With("component", "fees")}
}

// Calculate applies the active rule for the currency to the amount. A
// currency without a rule gets a zero fee: fail-open is the product decision
// for uninstrumented currencies. Clamping to [min, max] happens before the
// 2-decimal half-up rounding, never after.
func (c *Calculator) Calculate(ctx context.Context, amount decimal.Decimal, currency string) (*domain.FeeBreakdown, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrAmountMustBePositive
	}

	rules, err := c.uow.FeeRules()
	if err != nil {
		return nil, err
	}
	rule, err := rules.ActiveForCurrency(ctx, currency)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return &domain.FeeBreakdown{
			OriginalAmount: amount,
			FeeAmount:      decimal.Zero,
			FinalAmount:    amount,
			FeePercentage:  decimal.Zero,
		}, nil
	}
	return Apply(amount, rule), nil
}

// Apply computes the breakdown for a known rule. Exposed separately so the
// engine can reuse a rule it already fetched inside a transaction.
func Apply(amount decimal.Decimal, rule *domain.FeeRule) *domain.FeeBreakdown {
	fee := amount.Mul(rule.Percentage).Div(hundred)
	if rule.MinAmount != nil && fee.LessThan(*rule.MinAmount) {
		fee = *rule.MinAmount
	}
	if rule.MaxAmount != nil && fee.GreaterThan(*rule.MaxAmount) {
		fee = *rule.MaxAmount
	}
	fee = fee.Round(2)
	return &domain.FeeBreakdown{
		OriginalAmount: amount,
		FeeAmount:      fee,
		FinalAmount:    amount.Sub(fee).Round(2),
		FeePercentage:  rule.Percentage,
	}
}

// CreateRule installs a new rule for its currency, atomically retiring the
// previous active rule so the history stays append-only and at most one rule
// per currency is ever active.
func (c *Calculator) CreateRule(ctx context.Context, rule *domain.FeeRule) error {
	if rule.Percentage.IsNegative() {
		return domain.ErrValidation
	}
	err := c.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		rules, err := uow.FeeRules()
		if err != nil {
			return err
		}
		if err := rules.DeactivateForCurrency(ctx, rule.Currency); err != nil {
			return err
		}
		return rules.Create(ctx, rule)
	})
	if err != nil {
		return err
	}
	c.logger.Info("fee rule installed",
		"currency", rule.Currency,
		"percentage", rule.Percentage.String(),
	)
	return nil
}

// History returns the full rule history for a currency, newest first.
func (c *Calculator) History(ctx context.Context, currency string) ([]*domain.FeeRule, error) {
	rules, err := c.uow.FeeRules()
	if err != nil {
		return nil, err
	}
	return rules.ListByCurrency(ctx, currency)
}
