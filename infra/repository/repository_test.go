package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	infrarepo "github.com/tolempay/billing/infra/repository"
	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes
	// writers the way row locks do on postgres.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, infrarepo.Migrate(db))
	return db
}

func TestWalletRepository_DebitGuard(t *testing.T) {
	db := newTestDB(t)
	wallets := infrarepo.NewWalletRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, wallets.Credit(ctx, userID, "KZT", decimal.NewFromInt(1000)))

	require.NoError(t, wallets.Debit(ctx, userID, "KZT", decimal.NewFromInt(400)))

	err := wallets.Debit(ctx, userID, "KZT", decimal.NewFromInt(700))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err := wallets.Get(ctx, userID, "KZT")
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(600)), "got %s", balance.Amount)
}

func TestWalletRepository_DebitMissingWallet(t *testing.T) {
	db := newTestDB(t)
	wallets := infrarepo.NewWalletRepository(db)

	err := wallets.Debit(context.Background(), uuid.New(), "KZT", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestWalletRepository_DebitRejectsNonPositive(t *testing.T) {
	db := newTestDB(t)
	wallets := infrarepo.NewWalletRepository(db)

	err := wallets.Debit(context.Background(), uuid.New(), "KZT", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrAmountMustBePositive)
}

func TestWalletRepository_ConcurrentDebits(t *testing.T) {
	db := newTestDB(t)
	wallets := infrarepo.NewWalletRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	// Balance 500, ten concurrent debits of 100: exactly five may succeed.
	require.NoError(t, wallets.Credit(ctx, userID, "KZT", decimal.NewFromInt(500)))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- wallets.Debit(ctx, userID, "KZT", decimal.NewFromInt(100))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 5, succeeded)

	balance, err := wallets.Get(ctx, userID, "KZT")
	require.NoError(t, err)
	assert.True(t, balance.Amount.IsZero(), "balance must end at zero, got %s", balance.Amount)
}

func TestWalletRepository_SeedIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	wallets := infrarepo.NewWalletRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, wallets.Seed(ctx, userID, []string{"KZT", "USD"}))
	require.NoError(t, wallets.Credit(ctx, userID, "KZT", decimal.NewFromInt(55)))
	// A second seed must not reset existing balances.
	require.NoError(t, wallets.Seed(ctx, userID, []string{"KZT", "USD"}))

	balance, err := wallets.Get(ctx, userID, "KZT")
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(55)))

	rows, err := wallets.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWalletRepository_CreditCreatesRowLazily(t *testing.T) {
	db := newTestDB(t)
	wallets := infrarepo.NewWalletRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := wallets.Get(ctx, userID, "KZT")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	require.NoError(t, wallets.Credit(ctx, userID, "KZT", decimal.NewFromInt(250)))
	balance, err := wallets.Get(ctx, userID, "KZT")
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(250)))
}

func TestTransactionRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	txs := infrarepo.NewTransactionRepository(db)
	ctx := context.Background()

	record := &domain.Transaction{
		UserID:   uuid.New(),
		Currency: "KZT",
		Amount:   decimal.NewFromInt(500),
		Type:     domain.TypeDeposit,
		Source:   domain.SourceCard,
		OrderID:  "pay_1700000000001",
	}
	require.NoError(t, txs.Create(ctx, record))
	assert.Equal(t, domain.StatusPending, record.Status)

	got, err := txs.GetByOrderID(ctx, "pay_1700000000001")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	paymentID := "pid-9"
	require.NoError(t, txs.UpdateStatus(ctx, record.ID, domain.StatusCompleted, repo.TransactionUpdate{PaymentID: &paymentID}))

	got, err = txs.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "pid-9", got.PaymentID)

	// A second terminal update must not be applied.
	err = txs.UpdateStatus(ctx, record.ID, domain.StatusFailed, repo.TransactionUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err = txs.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestTransactionRepository_UpdateStatusUnknownID(t *testing.T) {
	db := newTestDB(t)
	txs := infrarepo.NewTransactionRepository(db)

	err := txs.UpdateStatus(context.Background(), uuid.New(), domain.StatusCompleted, repo.TransactionUpdate{})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_OrderIDUnique(t *testing.T) {
	db := newTestDB(t)
	txs := infrarepo.NewTransactionRepository(db)
	ctx := context.Background()

	first := &domain.Transaction{
		UserID: uuid.New(), Currency: "KZT", Amount: decimal.NewFromInt(1),
		Type: domain.TypeDeposit, Source: domain.SourceCard, OrderID: "pay_42",
	}
	require.NoError(t, txs.Create(ctx, first))

	dup := &domain.Transaction{
		UserID: uuid.New(), Currency: "KZT", Amount: decimal.NewFromInt(1),
		Type: domain.TypeDeposit, Source: domain.SourceCard, OrderID: "pay_42",
	}
	assert.Error(t, txs.Create(ctx, dup))
}

func TestTransactionRepository_WalletRecordsHaveNoOrderID(t *testing.T) {
	db := newTestDB(t)
	txs := infrarepo.NewTransactionRepository(db)
	ctx := context.Background()

	// Two wallet-path records without order ids must not collide on the
	// unique index.
	for i := 0; i < 2; i++ {
		record := &domain.Transaction{
			UserID: uuid.New(), Currency: "KZT", Amount: decimal.NewFromInt(5),
			Type: domain.TypeTransfer, Source: domain.SourceWallet,
		}
		require.NoError(t, txs.Create(ctx, record))
	}
}

func TestTransactionRepository_ExistsCompletedPurchase(t *testing.T) {
	db := newTestDB(t)
	txs := infrarepo.NewTransactionRepository(db)
	ctx := context.Background()
	buyerID := uuid.New()
	itemID := uuid.New()

	owned, err := txs.ExistsCompletedPurchase(ctx, buyerID, itemID)
	require.NoError(t, err)
	assert.False(t, owned)

	record := &domain.Transaction{
		UserID: buyerID, Currency: "KZT", Amount: decimal.NewFromInt(500),
		Type: domain.TypeTransfer, Source: domain.SourceWallet,
		Status: domain.StatusCompleted, ItemID: &itemID,
	}
	require.NoError(t, txs.Create(ctx, record))

	owned, err = txs.ExistsCompletedPurchase(ctx, buyerID, itemID)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestTransactionRepository_CompletedPurchaseUnique(t *testing.T) {
	db := newTestDB(t)
	txs := infrarepo.NewTransactionRepository(db)
	ctx := context.Background()
	buyerID := uuid.New()
	itemID := uuid.New()

	first := &domain.Transaction{
		UserID: buyerID, Currency: "KZT", Amount: decimal.NewFromInt(500),
		Type: domain.TypeTransfer, Source: domain.SourceWallet,
		Status: domain.StatusCompleted, ItemID: &itemID,
	}
	require.NoError(t, txs.Create(ctx, first))

	// A second completed transfer for the same (buyer, item) violates the
	// partial unique index, so a concurrent purchase cannot double-commit.
	dup := &domain.Transaction{
		UserID: buyerID, Currency: "KZT", Amount: decimal.NewFromInt(500),
		Type: domain.TypeTransfer, Source: domain.SourceWallet,
		Status: domain.StatusCompleted, ItemID: &itemID,
	}
	err := txs.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrAlreadyPurchased)

	// A pending card record for the same pair is fine; only its completion
	// is constrained.
	pending := &domain.Transaction{
		UserID: buyerID, Currency: "KZT", Amount: decimal.NewFromInt(500),
		Type: domain.TypeTransfer, Source: domain.SourceCard,
		Status: domain.StatusPending, OrderID: "recurrent_99", ItemID: &itemID,
	}
	require.NoError(t, txs.Create(ctx, pending))

	err = txs.UpdateStatus(ctx, pending.ID, domain.StatusCompleted, repo.TransactionUpdate{})
	assert.ErrorIs(t, err, domain.ErrAlreadyPurchased)

	// Another buyer can still complete a purchase of the same item.
	other := &domain.Transaction{
		UserID: uuid.New(), Currency: "KZT", Amount: decimal.NewFromInt(500),
		Type: domain.TypeTransfer, Source: domain.SourceWallet,
		Status: domain.StatusCompleted, ItemID: &itemID,
	}
	require.NoError(t, txs.Create(ctx, other))
}

func TestSubscriptionRepository_ActiveAndExpiring(t *testing.T) {
	db := newTestDB(t)
	subs := infrarepo.NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now()
	userID := uuid.New()

	expiringSoon := &domain.Subscription{
		UserID: userID, PlanID: uuid.New(), PriceID: uuid.New(),
		IsAutoRenewal: true, PaymentMethod: domain.SourceCard,
		CardMasked: "440043******1234", ExpiredAt: now.Add(6 * time.Hour),
	}
	require.NoError(t, subs.Create(ctx, expiringSoon))

	farOut := &domain.Subscription{
		UserID: uuid.New(), PlanID: uuid.New(), PriceID: uuid.New(),
		IsAutoRenewal: true, PaymentMethod: domain.SourceCard,
		ExpiredAt: now.Add(72 * time.Hour),
	}
	require.NoError(t, subs.Create(ctx, farOut))

	noRenewal := &domain.Subscription{
		UserID: uuid.New(), PlanID: uuid.New(), PriceID: uuid.New(),
		IsAutoRenewal: false, PaymentMethod: domain.SourceCard,
		ExpiredAt: now.Add(3 * time.Hour),
	}
	require.NoError(t, subs.Create(ctx, noRenewal))

	due, err := subs.ExpiringWithin(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, expiringSoon.ID, due[0].ID)

	active, err := subs.ActiveForUser(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, expiringSoon.ID, active.ID)

	_, err = subs.ActiveForUser(ctx, uuid.New(), now)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestSubscriptionRepository_CancelKeepsExpiry(t *testing.T) {
	db := newTestDB(t)
	subs := infrarepo.NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now()
	expiry := now.Add(20 * 24 * time.Hour)

	sub := &domain.Subscription{
		UserID: uuid.New(), PlanID: uuid.New(), PriceID: uuid.New(),
		IsAutoRenewal: true, PaymentMethod: domain.SourceWallet, ExpiredAt: expiry,
	}
	require.NoError(t, subs.Create(ctx, sub))
	require.NoError(t, subs.Cancel(ctx, sub.ID, now))

	got, err := subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAutoRenewal)
	require.NotNil(t, got.CancelledAt)
	assert.WithinDuration(t, expiry, got.ExpiredAt, time.Second)
	assert.True(t, got.IsActive(now))
}

func TestSubscriptionRepository_RetentionSweep(t *testing.T) {
	db := newTestDB(t)
	subs := infrarepo.NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now()

	stale := &domain.Subscription{
		UserID: uuid.New(), PlanID: uuid.New(), PriceID: uuid.New(),
		PaymentMethod: domain.SourceCard, ExpiredAt: now.Add(-13 * 30 * 24 * time.Hour),
	}
	require.NoError(t, subs.Create(ctx, stale))

	recent := &domain.Subscription{
		UserID: uuid.New(), PlanID: uuid.New(), PriceID: uuid.New(),
		PaymentMethod: domain.SourceCard, ExpiredAt: now.Add(-24 * time.Hour),
	}
	require.NoError(t, subs.Create(ctx, recent))

	removed, err := subs.DeleteExpiredBefore(ctx, now.Add(-12*30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = subs.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	_, err = subs.Get(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestFeeRuleRepository_SingleActiveRule(t *testing.T) {
	db := newTestDB(t)
	rules := infrarepo.NewFeeRuleRepository(db)
	ctx := context.Background()

	none, err := rules.ActiveForCurrency(ctx, "KZT")
	require.NoError(t, err)
	assert.Nil(t, none)

	first := &domain.FeeRule{Currency: "KZT", Percentage: decimal.NewFromInt(5)}
	require.NoError(t, rules.Create(ctx, first))

	require.NoError(t, rules.DeactivateForCurrency(ctx, "KZT"))
	second := &domain.FeeRule{Currency: "KZT", Percentage: decimal.NewFromInt(7)}
	require.NoError(t, rules.Create(ctx, second))

	active, err := rules.ActiveForCurrency(ctx, "KZT")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.Percentage.Equal(decimal.NewFromInt(7)))

	history, err := rules.ListByCurrency(ctx, "KZT")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPaymentTokenRepository_LatestForCard(t *testing.T) {
	db := newTestDB(t)
	tokens := infrarepo.NewPaymentTokenRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	card := "440043******1234"

	older := &domain.PaymentToken{UserID: userID, Token: "tok_old", CardMasked: card}
	require.NoError(t, tokens.Create(ctx, older))
	// Force distinct created_at values; sqlite timestamps are coarse.
	db.Model(&infrarepo.PaymentToken{}).Where("id = ?", older.ID).
		Update("created_at", time.Now().Add(-time.Hour))

	newer := &domain.PaymentToken{UserID: userID, Token: "tok_new", CardMasked: card}
	require.NoError(t, tokens.Create(ctx, newer))

	got, err := tokens.LatestForCard(ctx, userID, card)
	require.NoError(t, err)
	assert.Equal(t, "tok_new", got.Token)

	_, err = tokens.LatestForCard(ctx, userID, "5169****0000")
	assert.ErrorIs(t, err, domain.ErrPaymentTokenNotFound)
}

func TestUoW_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	uow := infrarepo.NewUoW(db)
	ctx := context.Background()
	userID := uuid.New()

	wallets := infrarepo.NewWalletRepository(db)
	require.NoError(t, wallets.Credit(ctx, userID, "KZT", decimal.NewFromInt(100)))

	err := uow.Do(ctx, func(tx repo.UnitOfWork) error {
		w, err := tx.Wallets()
		require.NoError(t, err)
		if err := w.Debit(ctx, userID, "KZT", decimal.NewFromInt(100)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	balance, err := wallets.Get(ctx, userID, "KZT")
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(100)), "debit must be rolled back")
}

func TestUoW_CommitsMultiRowMutation(t *testing.T) {
	db := newTestDB(t)
	uow := infrarepo.NewUoW(db)
	ctx := context.Background()
	buyerID := uuid.New()
	sellerID := uuid.New()

	wallets := infrarepo.NewWalletRepository(db)
	require.NoError(t, wallets.Credit(ctx, buyerID, "KZT", decimal.NewFromInt(1000)))

	err := uow.Do(ctx, func(tx repo.UnitOfWork) error {
		w, err := tx.Wallets()
		if err != nil {
			return err
		}
		if err := w.Debit(ctx, buyerID, "KZT", decimal.NewFromInt(500)); err != nil {
			return err
		}
		return w.Credit(ctx, sellerID, "KZT", decimal.NewFromInt(475))
	})
	require.NoError(t, err)

	buyer, err := wallets.Get(ctx, buyerID, "KZT")
	require.NoError(t, err)
	assert.True(t, buyer.Amount.Equal(decimal.NewFromInt(500)))

	seller, err := wallets.Get(ctx, sellerID, "KZT")
	require.NoError(t, err)
	assert.True(t, seller.Amount.Equal(decimal.NewFromInt(475)))
}
