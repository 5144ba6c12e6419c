package webapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/engine"
	"github.com/tolempay/billing/pkg/gateway"
)

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID.String(),
		Currency:  tx.Currency,
		Amount:    tx.Amount,
		Type:      string(tx.Type),
		Source:    string(tx.Source),
		Status:    string(tx.Status),
		OrderID:   tx.OrderID,
		PaymentID: tx.PaymentID,
	}
}

func toPurchaseResponse(outcome *engine.Outcome) PurchaseResponse {
	resp := PurchaseResponse{
		Transaction:    toTransactionResponse(outcome.Transaction),
		PaymentPageUrl: outcome.PaymentPageUrl,
	}
	if outcome.Fee != nil {
		fee := outcome.Fee.FeeAmount
		seller := outcome.Fee.FinalAmount
		resp.FeeAmount = &fee
		resp.SellerAmount = &seller
	}
	return resp
}

// PurchaseHandler handles POST /purchase.
func PurchaseHandler(e *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[PurchaseRequest](c)
		if err != nil {
			return nil
		}
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid user id", err.Error())
		}
		itemID, err := uuid.Parse(input.ItemID)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid item id", err.Error())
		}

		outcome, err := e.Purchase(c.UserContext(), engine.PurchaseRequest{
			UserID:     userID,
			ItemID:     itemID,
			Source:     domain.FundingSource(input.Source),
			CardMasked: input.CardMasked,
		})
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Purchase failed", err.Error())
		}

		status := fiber.StatusOK
		if !outcome.Completed() {
			status = fiber.StatusAccepted
		}
		return SuccessResponseJSON(c, status, "Purchase processed", toPurchaseResponse(outcome))
	}
}

// TopUpHandler handles POST /topup.
func TopUpHandler(e *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[TopUpRequest](c)
		if err != nil {
			return nil
		}
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid user id", err.Error())
		}

		outcome, err := e.TopUp(c.UserContext(), engine.TopUpRequest{
			UserID:   userID,
			Currency: input.Currency,
			Amount:   input.Amount,
		})
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Top-up failed", err.Error())
		}
		return SuccessResponseJSON(c, fiber.StatusAccepted, "Top-up initiated", toPurchaseResponse(outcome))
	}
}

// GatewayWebhookHandler handles POST /webhooks/gateway. The signature check
// runs before anything else; an unverifiable callback is a 400 and an
// unknown order a 404, so the gateway retries neither. A replay of an
// already-settled order returns 200 with no side effects.
func GatewayWebhookHandler(e *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var msg gateway.SignedMessage
		if err := c.BodyParser(&msg); err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid webhook envelope", err.Error())
		}
		if msg.Data == "" || msg.Sign == "" {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid webhook envelope", "data and sign are required")
		}

		record, err := e.HandleCallback(c.UserContext(), msg)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Callback rejected", err.Error())
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Callback processed", toTransactionResponse(record))
	}
}
