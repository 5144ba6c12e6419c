package webapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tolempay/billing/internal/fixtures/mocks"
	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/currency"
	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/engine"
	"github.com/tolempay/billing/pkg/fees"
	"github.com/tolempay/billing/pkg/gateway"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/wallet"
)

var testGatewayCfg = &config.Gateway{
	ApiUrl:      "https://gateway.test",
	ApiKey:      "api-key",
	SecretKey:   "secret-key",
	MerchantID:  "merchant-1",
	ServiceID:   "service-1",
	CallbackUrl: "https://billing.test/webhooks/gateway",
	HTTPTimeout: 2 * time.Second,
}

type testApp struct {
	app      *fiber.App
	uow      *mocks.UnitOfWork
	protocol *gateway.Protocol
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	uow := mocks.NewUnitOfWork()
	logger := slog.Default()
	events := notifier.NewMemory(nil, 64, logger)
	t.Cleanup(func() { _ = events.Close() })

	gw := gateway.NewClient(testGatewayCfg, logger)
	eng := engine.New(uow, gw, nil, events, logger)
	walletSvc := wallet.NewService(uow, currency.Default(), nil, events, logger)
	calc := fees.NewCalculator(uow, logger)

	app := NewApp(Deps{
		Engine: eng,
		Wallet: walletSvc,
		Fees:   calc,
		Config: &config.AppConfig{Gateway: *testGatewayCfg},
	})
	return &testApp{app: app, uow: uow, protocol: gw.Protocol()}
}

func (ta *testApp) request(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	ta := newTestApp(t)

	msg, err := ta.protocol.Sign(gateway.CallbackPayload{OrderID: "pay_1", OperationStatus: "success"})
	require.NoError(t, err)
	msg.Sign = msg.Sign[:len(msg.Sign)-2] + "00"

	resp := ta.request(t, fiber.MethodPost, "/webhooks/gateway", msg)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	ta.uow.TransactionRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestWebhookUnknownOrderIs404(t *testing.T) {
	ta := newTestApp(t)
	ta.uow.TransactionRepo.On("GetByOrderID", mock.Anything, "pay_404").Return(nil, domain.ErrTransactionNotFound)

	msg, err := ta.protocol.Sign(gateway.CallbackPayload{OrderID: "pay_404", OperationStatus: "success"})
	require.NoError(t, err)

	resp := ta.request(t, fiber.MethodPost, "/webhooks/gateway", msg)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestWebhookReplayReturns200(t *testing.T) {
	ta := newTestApp(t)
	record := &domain.Transaction{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		OrderID: "pay_1",
		Type:    domain.TypeDeposit,
		Status:  domain.StatusCompleted,
		Amount:  decimal.NewFromInt(1000),
	}
	ta.uow.TransactionRepo.On("GetByOrderID", mock.Anything, "pay_1").Return(record, nil)

	msg, err := ta.protocol.Sign(gateway.CallbackPayload{OrderID: "pay_1", OperationStatus: "success"})
	require.NoError(t, err)

	resp := ta.request(t, fiber.MethodPost, "/webhooks/gateway", msg)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	ta.uow.WalletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ta.uow.TransactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookCompletesTopUp(t *testing.T) {
	ta := newTestApp(t)
	userID := uuid.New()
	record := &domain.Transaction{
		ID:       uuid.New(),
		UserID:   userID,
		Currency: "KZT",
		Amount:   decimal.NewFromInt(1000),
		Type:     domain.TypeDeposit,
		Source:   domain.SourceCard,
		Status:   domain.StatusPending,
		OrderID:  "pay_1700000000000",
	}
	ta.uow.TransactionRepo.On("GetByOrderID", mock.Anything, record.OrderID).Return(record, nil)
	ta.uow.WalletRepo.On("Credit", mock.Anything, userID, "KZT", record.Amount).Return(nil)
	ta.uow.TransactionRepo.On("UpdateStatus", mock.Anything, record.ID, domain.StatusCompleted,
		mock.AnythingOfType("repository.TransactionUpdate")).Return(nil)

	msg, err := ta.protocol.Sign(gateway.CallbackPayload{
		OrderID:         record.OrderID,
		OperationStatus: "success",
		PaymentID:       "pm_1",
	})
	require.NoError(t, err)

	resp := ta.request(t, fiber.MethodPost, "/webhooks/gateway", msg)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	ta.uow.WalletRepo.AssertExpectations(t)
}

func TestWebhookRejectsEmptyEnvelope(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, fiber.MethodPost, "/webhooks/gateway", map[string]string{})
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
