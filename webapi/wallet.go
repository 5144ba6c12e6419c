package webapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tolempay/billing/pkg/wallet"
)

func parseUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Query("user_id")
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "user_id query parameter is required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "user_id must be a UUID")
	}
	return userID, nil
}

// WalletBalancesHandler handles GET /wallet.
func WalletBalancesHandler(svc *wallet.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := parseUserID(c)
		if err != nil {
			return err
		}
		balances, err := svc.Balances(c.UserContext(), userID)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to read balances", err.Error())
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Balances", balances)
	}
}

// TransactionsHandler handles GET /transactions.
func TransactionsHandler(svc *wallet.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := parseUserID(c)
		if err != nil {
			return err
		}
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		history, err := svc.History(c.UserContext(), userID, limit)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to read transactions", err.Error())
		}
		out := make([]TransactionResponse, 0, len(history))
		for _, tx := range history {
			out = append(out, toTransactionResponse(tx))
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Transactions", out)
	}
}
