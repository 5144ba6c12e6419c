package webapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/engine"
)

// SubscribeHandler handles POST /subscriptions.
func SubscribeHandler(e *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[SubscribeRequest](c)
		if err != nil {
			return nil
		}
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid user id", err.Error())
		}
		priceID, err := uuid.Parse(input.PriceID)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid price id", err.Error())
		}

		outcome, err := e.Subscribe(c.UserContext(), engine.SubscribeRequest{
			UserID:     userID,
			PriceID:    priceID,
			Source:     domain.FundingSource(input.Source),
			CardMasked: input.CardMasked,
		})
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Subscription failed", err.Error())
		}
		status := fiber.StatusOK
		if !outcome.Completed() {
			status = fiber.StatusAccepted
		}
		return SuccessResponseJSON(c, status, "Subscription processed", toPurchaseResponse(outcome))
	}
}

// CancelSubscriptionHandler handles DELETE /subscriptions/:id. Cancelling
// turns auto-renewal off; access persists until the paid period expires.
func CancelSubscriptionHandler(e *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid subscription id", err.Error())
		}
		userID, err := parseUserID(c)
		if err != nil {
			return err
		}
		if err := e.CancelSubscription(c.UserContext(), userID, subID); err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Cancellation failed", err.Error())
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Subscription cancelled", nil)
	}
}
