package webapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/fees"
)

// CreateFeeRuleHandler handles POST /fees/rules. Installing a rule retires
// the previous active rule for the currency.
func CreateFeeRuleHandler(calc *fees.Calculator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[FeeRuleRequest](c)
		if err != nil {
			return nil
		}
		rule := &domain.FeeRule{
			Currency:   input.Currency,
			Percentage: input.Percentage,
			MinAmount:  input.MinAmount,
			MaxAmount:  input.MaxAmount,
			IsActive:   true,
		}
		if err := calc.CreateRule(c.UserContext(), rule); err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Fee rule rejected", err.Error())
		}
		return SuccessResponseJSON(c, fiber.StatusCreated, "Fee rule installed", rule)
	}
}

// FeePreviewHandler handles GET /fees/preview: an advisory breakdown of the
// fee an amount would carry, with nothing persisted.
func FeePreviewHandler(calc *fees.Calculator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		currency := c.Query("currency")
		if currency == "" {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid preview request", "currency query parameter is required")
		}
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid preview request", "amount must be a decimal number")
		}

		breakdown, err := calc.Calculate(c.UserContext(), amount, currency)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Fee preview failed", err.Error())
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Fee preview", breakdown)
	}
}
