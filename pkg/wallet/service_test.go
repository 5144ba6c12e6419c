package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tolempay/billing/internal/fixtures/mocks"
	"github.com/tolempay/billing/pkg/currency"
	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/notifier"
)

type recordSink struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (s *recordSink) Deliver(_ context.Context, event notifier.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordSink) all() []notifier.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifier.Event(nil), s.events...)
}

func newService(uow *mocks.UnitOfWork) (*Service, *recordSink, *notifier.Memory) {
	sink := &recordSink{}
	events := notifier.NewMemory(sink, 16, slog.Default())
	return NewService(uow, currency.Default(), nil, events, slog.Default()), sink, events
}

func TestCheckBalance(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("sufficient", func(t *testing.T) {
		uow := mocks.NewUnitOfWork()
		svc, _, _ := newService(uow)
		uow.WalletRepo.On("Get", ctx, userID, "KZT").Return(
			&domain.WalletBalance{UserID: userID, Currency: "KZT", Amount: decimal.NewFromInt(500)}, nil)

		check, err := svc.CheckBalance(ctx, userID, "KZT", decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.True(t, check.Sufficient)
		assert.True(t, check.Current.Equal(decimal.NewFromInt(500)))
	})

	t.Run("insufficient", func(t *testing.T) {
		uow := mocks.NewUnitOfWork()
		svc, _, _ := newService(uow)
		uow.WalletRepo.On("Get", ctx, userID, "KZT").Return(
			&domain.WalletBalance{UserID: userID, Currency: "KZT", Amount: decimal.NewFromInt(499)}, nil)

		check, err := svc.CheckBalance(ctx, userID, "KZT", decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.False(t, check.Sufficient)
	})

	t.Run("missing wallet reads as zero", func(t *testing.T) {
		uow := mocks.NewUnitOfWork()
		svc, _, _ := newService(uow)
		uow.WalletRepo.On("Get", ctx, userID, "KZT").Return(nil, domain.ErrWalletNotFound)

		check, err := svc.CheckBalance(ctx, userID, "KZT", decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.False(t, check.Sufficient)
		assert.True(t, check.Current.IsZero())
	})
}

func TestDebitCreatesLedgerRow(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	uow := mocks.NewUnitOfWork()
	svc, sink, events := newService(uow)

	amount := decimal.NewFromInt(100)
	uow.WalletRepo.On("Debit", ctx, userID, "KZT", amount).Return(nil)
	uow.TransactionRepo.On("Create", ctx, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.Type == domain.TypeWithdraw &&
			tx.Source == domain.SourceWallet &&
			tx.Status == domain.StatusCompleted &&
			tx.Amount.Equal(amount)
	})).Return(nil)

	record, err := svc.Debit(ctx, userID, "KZT", amount)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeWithdraw, record.Type)
	uow.WalletRepo.AssertExpectations(t)
	uow.TransactionRepo.AssertExpectations(t)

	require.NoError(t, events.Close())
	delivered := sink.all()
	require.Len(t, delivered, 1)
	assert.Equal(t, notifier.KindWalletOperation, delivered[0].Kind)
}

func TestDebitInsufficientWritesNothing(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	uow := mocks.NewUnitOfWork()
	svc, _, _ := newService(uow)

	amount := decimal.NewFromInt(100)
	uow.WalletRepo.On("Debit", ctx, userID, "KZT", amount).Return(domain.ErrInsufficientFunds)

	_, err := svc.Debit(ctx, userID, "KZT", amount)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	uow.TransactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDebitUnsupportedCurrency(t *testing.T) {
	uow := mocks.NewUnitOfWork()
	svc, _, _ := newService(uow)

	_, err := svc.Debit(context.Background(), uuid.New(), "XXX", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, currency.ErrUnsupported)
}

func TestCreditCreatesLedgerRow(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	uow := mocks.NewUnitOfWork()
	svc, _, _ := newService(uow)

	amount := decimal.NewFromInt(250)
	uow.WalletRepo.On("Credit", ctx, userID, "USD", amount).Return(nil)
	uow.TransactionRepo.On("Create", ctx, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.Type == domain.TypeDeposit && tx.Currency == "USD"
	})).Return(nil)

	record, err := svc.Credit(ctx, userID, "USD", amount)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	uow.WalletRepo.AssertExpectations(t)
}

func TestCreditRollsBackOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	uow := mocks.NewUnitOfWork()
	svc, _, _ := newService(uow)

	boom := errors.New("ledger write failed")
	uow.WalletRepo.On("Credit", ctx, userID, "KZT", mock.Anything).Return(nil)
	uow.TransactionRepo.On("Create", ctx, mock.Anything).Return(boom)

	_, err := svc.Credit(ctx, userID, "KZT", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, boom)
}

type cacheStub struct {
	entries     map[uuid.UUID][]*domain.WalletBalance
	invalidated int
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: map[uuid.UUID][]*domain.WalletBalance{}}
}

func (c *cacheStub) Get(_ context.Context, userID uuid.UUID) ([]*domain.WalletBalance, bool) {
	balances, ok := c.entries[userID]
	return balances, ok
}

func (c *cacheStub) Set(_ context.Context, userID uuid.UUID, balances []*domain.WalletBalance) {
	c.entries[userID] = balances
}

func (c *cacheStub) Invalidate(_ context.Context, userID uuid.UUID) {
	delete(c.entries, userID)
	c.invalidated++
}

func TestBalancesReadThroughCache(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	uow := mocks.NewUnitOfWork()
	cache := newCacheStub()
	events := notifier.NewMemory(&recordSink{}, 16, slog.Default())
	svc := NewService(uow, currency.Default(), cache, events, slog.Default())

	rows := []*domain.WalletBalance{{UserID: userID, Currency: "KZT", Amount: decimal.NewFromInt(42)}}
	uow.WalletRepo.On("ListByUser", ctx, userID).Return(rows, nil).Once()

	// First read misses and populates; second is served from cache.
	first, err := svc.Balances(ctx, userID)
	require.NoError(t, err)
	second, err := svc.Balances(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	uow.WalletRepo.AssertNumberOfCalls(t, "ListByUser", 1)

	// A credit drops the entry.
	uow.WalletRepo.On("Credit", ctx, userID, "KZT", mock.Anything).Return(nil)
	uow.TransactionRepo.On("Create", ctx, mock.Anything).Return(nil)
	_, err = svc.Credit(ctx, userID, "KZT", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
}

func TestCreateAccountSeedsSupportedCurrencies(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	uow := mocks.NewUnitOfWork()
	svc, _, _ := newService(uow)

	uow.WalletRepo.On("Seed", ctx, userID, mock.MatchedBy(func(codes []string) bool {
		seen := map[string]bool{}
		for _, c := range codes {
			seen[c] = true
		}
		return seen["KZT"] && seen["USD"]
	})).Return(nil)

	require.NoError(t, svc.CreateAccount(ctx, userID))
	uow.WalletRepo.AssertExpectations(t)
}
