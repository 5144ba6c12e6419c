package webapi

import (
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tolempay/billing/pkg/domain"
)

func TestPurchaseValidation(t *testing.T) {
	ta := newTestApp(t)

	t.Run("missing fields", func(t *testing.T) {
		resp := ta.request(t, fiber.MethodPost, "/purchase", map[string]string{})
		defer resp.Body.Close() //nolint:errcheck
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad source", func(t *testing.T) {
		resp := ta.request(t, fiber.MethodPost, "/purchase", PurchaseRequest{
			UserID: uuid.NewString(),
			ItemID: uuid.NewString(),
			Source: "cash",
		})
		defer resp.Body.Close() //nolint:errcheck
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestWalletBalancesEndpoint(t *testing.T) {
	ta := newTestApp(t)
	userID := uuid.New()
	ta.uow.WalletRepo.On("ListByUser", mock.Anything, userID).Return(
		[]*domain.WalletBalance{{UserID: userID, Currency: "KZT", Amount: decimal.NewFromInt(750)}}, nil)

	resp := ta.request(t, fiber.MethodGet, "/wallet?user_id="+userID.String(), nil)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusOK, body.Status)
}

func TestWalletBalancesRequiresUserID(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, fiber.MethodGet, "/wallet", nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTransactionsEndpoint(t *testing.T) {
	ta := newTestApp(t)
	userID := uuid.New()
	ta.uow.TransactionRepo.On("ListByUser", mock.Anything, userID, 50).Return(
		[]*domain.Transaction{
			{ID: uuid.New(), UserID: userID, Currency: "KZT", Amount: decimal.NewFromInt(100), Type: domain.TypeDeposit, Status: domain.StatusCompleted},
		}, nil)

	resp := ta.request(t, fiber.MethodGet, "/transactions?user_id="+userID.String(), nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestFeePreviewEndpoint(t *testing.T) {
	ta := newTestApp(t)
	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(200)
	ta.uow.FeeRuleRepo.On("ActiveForCurrency", mock.Anything, "KZT").Return(&domain.FeeRule{
		Currency:   "KZT",
		Percentage: decimal.NewFromInt(5),
		MinAmount:  &min,
		MaxAmount:  &max,
		IsActive:   true,
	}, nil)

	resp := ta.request(t, fiber.MethodGet, "/fees/preview?currency=KZT&amount=500", nil)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			FeeAmount decimal.Decimal `json:"FeeAmount"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Data.FeeAmount.Equal(decimal.NewFromInt(25)))
}

func TestFeePreviewRejectsBadAmount(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.request(t, fiber.MethodGet, "/fees/preview?currency=KZT&amount=abc", nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCancelSubscriptionEndpoint(t *testing.T) {
	ta := newTestApp(t)
	userID := uuid.New()
	subID := uuid.New()
	ta.uow.SubscriptionRepo.On("Get", mock.Anything, subID).Return(
		&domain.Subscription{ID: subID, UserID: userID}, nil)
	ta.uow.SubscriptionRepo.On("Cancel", mock.Anything, subID, mock.Anything).Return(nil)

	resp := ta.request(t, fiber.MethodDelete, "/subscriptions/"+subID.String()+"?user_id="+userID.String(), nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	ta.uow.SubscriptionRepo.AssertExpectations(t)
}
