// Package webapi exposes the billing engine over HTTP: purchases, wallet
// top-ups, subscriptions, the gateway webhook, and the fee rule admin
// surface. Handlers validate input, call a service, and translate domain
// errors to problem-details responses; no business logic lives here.
package webapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/engine"
	"github.com/tolempay/billing/pkg/fees"
	"github.com/tolempay/billing/pkg/wallet"
)

// Deps carries the services the handlers depend on.
type Deps struct {
	Engine *engine.Engine
	Wallet *wallet.Service
	Fees   *fees.Calculator
	Config *config.AppConfig
}

// NewApp initializes Fiber with middleware and routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return ErrorResponseJSON(c, status, "Internal Server Error", err.Error())
		},
	})

	app.Use(limiter.New(limiter.Config{
		Max:        50,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return ErrorResponseJSON(c, fiber.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded")
		},
	}))
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Billing API is running! 🚀")
	})

	app.Post("/purchase", PurchaseHandler(deps.Engine))
	app.Post("/topup", TopUpHandler(deps.Engine))
	app.Post("/webhooks/gateway", GatewayWebhookHandler(deps.Engine))

	app.Get("/wallet", WalletBalancesHandler(deps.Wallet))
	app.Get("/transactions", TransactionsHandler(deps.Wallet))

	app.Post("/subscriptions", SubscribeHandler(deps.Engine))
	app.Delete("/subscriptions/:id", CancelSubscriptionHandler(deps.Engine))

	app.Post("/fees/rules", CreateFeeRuleHandler(deps.Fees))
	app.Get("/fees/preview", FeePreviewHandler(deps.Fees))

	return app
}
