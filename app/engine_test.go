package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-ledger/app"
	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/shared"
)

func capped(t *testing.T) *domain.Currency {
	return mustCurrency(t, domain.CurrencyConfig{
		Key:             "tokens",
		Decimals:        2,
		StartingBalance: dec("5"),
		MaxBalance:      decimal.NewNullDecimal(dec("100")),
	})
}

func TestEngine_Withdraw(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, app.EngineOptions{})

	t.Run("Success", func(t *testing.T) {
		account := newAccount(t, dollars(t), "100")
		tx := f.engine.Withdraw(ctx, account, dec("30.50"))

		assert.Equal(t, shared.ResultSuccess, tx.Result)
		assert.True(t, tx.Successful())
		assert.True(t, dec("69.50").Equal(account.Balance()))
		assert.Same(t, account.Currency(), tx.Currency)

		snap, err := f.store.Load(ctx, "dollars", account.Owner())
		require.NoError(t, err)
		assert.True(t, dec("69.5").Equal(snap.Balance))
	})

	t.Run("NotEnoughFunds", func(t *testing.T) {
		account := newAccount(t, dollars(t), "10")
		tx := f.engine.Withdraw(ctx, account, dec("10.01"))

		assert.Equal(t, shared.ResultNotEnoughFunds, tx.Result)
		assert.True(t, dec("10").Equal(account.Balance()))
	})

	t.Run("DownToTheFloor", func(t *testing.T) {
		account := newAccount(t, dollars(t), "10")
		tx := f.engine.Withdraw(ctx, account, dec("10"))

		assert.Equal(t, shared.ResultSuccess, tx.Result)
		assert.True(t, account.Balance().IsZero())
	})

	t.Run("NegativeFloorAllowsDebt", func(t *testing.T) {
		credit := mustCurrency(t, domain.CurrencyConfig{Key: "credit", Floor: decimal.NewNullDecimal(dec("-50"))})
		account := newAccount(t, credit, "0")

		assert.Equal(t, shared.ResultSuccess, f.engine.Withdraw(ctx, account, dec("50")).Result)
		assert.True(t, dec("-50").Equal(account.Balance()))
		assert.Equal(t, shared.ResultNotEnoughFunds, f.engine.Withdraw(ctx, account, dec("1")).Result)
	})
}

func TestEngine_Deposit(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, app.EngineOptions{})

	t.Run("Success", func(t *testing.T) {
		account := newAccount(t, capped(t), "5")
		tx := f.engine.Deposit(ctx, account, dec("95"))

		assert.Equal(t, shared.ResultSuccess, tx.Result)
		assert.True(t, dec("100").Equal(account.Balance()))
	})

	t.Run("NoRemainingSpace", func(t *testing.T) {
		account := newAccount(t, capped(t), "99.99")
		tx := f.engine.Deposit(ctx, account, dec("0.02"))

		assert.Equal(t, shared.ResultNoRemainingSpace, tx.Result)
		assert.True(t, dec("99.99").Equal(account.Balance()))
	})

	t.Run("DepositThenWithdrawRestoresBalance", func(t *testing.T) {
		account := newAccount(t, dollars(t), "12.34")
		require.True(t, f.engine.Deposit(ctx, account, dec("7.66")).Successful())
		require.True(t, f.engine.Withdraw(ctx, account, dec("7.66")).Successful())

		assert.True(t, dec("12.34").Equal(account.Balance()))
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		account := newAccount(t, dollars(t), "1")
		assert.Equal(t, shared.ResultSuccess, f.engine.Deposit(ctx, account, decimal.Zero).Result)
		assert.True(t, dec("1").Equal(account.Balance()))
	})
}

func TestEngine_InvalidRequests(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, app.EngineOptions{})
	preFired := 0
	f.gateway.OnTransactionPre(func(*events.TransactionPre) error {
		preFired++
		return nil
	})

	tests := []struct {
		name string
		run  func(*domain.Account) *domain.Transaction
	}{
		{"NegativeDeposit", func(a *domain.Account) *domain.Transaction { return f.engine.Deposit(ctx, a, dec("-1")) }},
		{"NegativeWithdraw", func(a *domain.Account) *domain.Transaction { return f.engine.Withdraw(ctx, a, dec("-1")) }},
		{"ExcessDecimals", func(a *domain.Account) *domain.Transaction { return f.engine.Deposit(ctx, a, dec("1.001")) }},
		{"SetBelowFloor", func(a *domain.Account) *domain.Transaction { return f.engine.Set(ctx, a, dec("-0.01")) }},
		{"SetAboveMax", func(a *domain.Account) *domain.Transaction { return f.engine.Set(ctx, a, dec("100.01")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := newAccount(t, capped(t), "50")
			tx := tt.run(account)

			assert.Equal(t, shared.ResultInvalid, tx.Result)
			assert.Error(t, tx.Err)
			assert.NotNil(t, tx.Currency)
			assert.True(t, dec("50").Equal(account.Balance()))
		})
	}

	t.Run("NilAccount", func(t *testing.T) {
		tx := f.engine.Deposit(ctx, nil, dec("1"))
		assert.Equal(t, shared.ResultInvalid, tx.Result)
		assert.ErrorIs(t, tx.Err, domain.ErrMissingRequiredField)
	})

	assert.Zero(t, preFired)
	assert.Equal(t, len(tests)+1, f.recorder.transactions[shared.ResultInvalid])
}

func TestEngine_Set(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, capped(t), "5")

	tx := f.engine.Set(context.Background(), account, dec("100"))
	assert.Equal(t, shared.ResultSuccess, tx.Result)
	assert.True(t, dec("100").Equal(account.Balance()))
}

func TestEngine_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("StartingBalance", func(t *testing.T) {
		f := newEngineFixture(t, app.EngineOptions{})
		account := newAccount(t, capped(t), "80")

		tx := f.engine.Reset(ctx, account)
		assert.Equal(t, shared.ResultSuccess, tx.Result)
		assert.True(t, dec("5").Equal(tx.Amount))
		assert.True(t, dec("5").Equal(account.Balance()))
	})

	t.Run("Override", func(t *testing.T) {
		f := newEngineFixture(t, app.EngineOptions{
			ResetOverrides: map[string]decimal.Decimal{"tokens": dec("20")},
		})
		account := newAccount(t, capped(t), "80")

		tx := f.engine.Reset(ctx, account)
		assert.Equal(t, shared.ResultSuccess, tx.Result)
		assert.True(t, dec("20").Equal(account.Balance()))
		assert.True(t, dec("20").Equal(f.engine.ResetBalance(account.Currency())))
	})
}

func TestEngine_PreEventCancels(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "10")

	postFired := false
	f.gateway.OnTransactionPre(func(e *events.TransactionPre) error {
		assert.Same(t, account, e.Account)
		assert.Equal(t, shared.TransactionWithdraw, e.Kind)
		e.Cancel()
		return nil
	})
	// A later observer cannot undo the cancellation.
	f.gateway.OnTransactionPre(func(*events.TransactionPre) error { return nil })
	f.gateway.OnTransactionPost(func(events.TransactionPost) error {
		postFired = true
		return nil
	})

	tx := f.engine.Withdraw(ctx, account, dec("5"))

	assert.Equal(t, shared.ResultCancelled, tx.Result)
	assert.True(t, dec("10").Equal(account.Balance()))
	assert.False(t, postFired)
	assert.Zero(t, f.store.Saves())
}

func TestEngine_ObserverFailuresAreCollected(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "10")
	f.gateway.OnTransactionPre(func(*events.TransactionPre) error { return errors.New("audit offline") })
	f.gateway.OnTransactionPost(func(events.TransactionPost) error { panic("boom") })

	tx := f.engine.Deposit(context.Background(), account, dec("1"))

	assert.Equal(t, shared.ResultSuccess, tx.Result)
	require.Error(t, tx.Err)
	assert.Contains(t, tx.Err.Error(), "audit offline")
	assert.Contains(t, tx.Err.Error(), "panicked")
}

func TestEngine_EventsAroundLock(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "10")

	var heldDuringPre, heldDuringPost bool
	f.gateway.OnTransactionPre(func(*events.TransactionPre) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := account.Lock(ctx); err != nil {
			heldDuringPre = true
			return nil
		}
		account.Unlock()
		return nil
	})
	f.gateway.OnTransactionPost(func(e events.TransactionPost) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := account.Lock(ctx); err != nil {
			heldDuringPost = true
			return nil
		}
		account.Unlock()
		assert.True(t, dec("11").Equal(e.Account().Balance()))
		return nil
	})

	tx := f.engine.Deposit(context.Background(), account, dec("1"))

	require.Equal(t, shared.ResultSuccess, tx.Result)
	assert.True(t, heldDuringPre)
	assert.False(t, heldDuringPost)
}

func TestEngine_PostOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "10")

	var results []shared.ResultType
	f.gateway.OnTransactionPost(func(e events.TransactionPost) error {
		results = append(results, e.Transaction.Result)
		return nil
	})

	f.engine.Withdraw(ctx, account, dec("20"))
	f.engine.Deposit(ctx, account, dec("-1"))
	f.engine.Withdraw(ctx, account, dec("2"))

	assert.Equal(t, []shared.ResultType{shared.ResultSuccess}, results)
	assert.Equal(t, 1, f.recorder.transactions[shared.ResultSuccess])
	assert.Equal(t, 1, f.recorder.transactions[shared.ResultNotEnoughFunds])
	assert.Equal(t, 1, f.recorder.transactions[shared.ResultInvalid])
}

func TestEngine_LockTimeout(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{LockTimeout: 20 * time.Millisecond})
	account := newAccount(t, dollars(t), "10")

	require.NoError(t, account.Lock(context.Background()))
	tx := f.engine.Deposit(context.Background(), account, dec("1"))
	account.Unlock()

	assert.Equal(t, shared.ResultFailed, tx.Result)
	assert.ErrorIs(t, tx.Err, context.DeadlineExceeded)
	assert.True(t, dec("10").Equal(account.Balance()))

	// The lock was not leaked by the failed attempt.
	assert.True(t, f.engine.Deposit(context.Background(), account, dec("1")).Successful())
}

func TestEngine_SaveFailureReverts(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "10")
	postFired := false
	f.gateway.OnTransactionPost(func(events.TransactionPost) error {
		postFired = true
		return nil
	})
	f.store.FailSaves(func(domain.AccountSnapshot) bool { return true })

	tx := f.engine.Withdraw(context.Background(), account, dec("4"))

	assert.Equal(t, shared.ResultFailed, tx.Result)
	assert.ErrorIs(t, tx.Err, errDiskFull)
	assert.True(t, dec("10").Equal(account.Balance()))
	assert.False(t, postFired)
}

func TestEngine_CallerCancelAfterPreStillPersists(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "10")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.gateway.OnTransactionPre(func(*events.TransactionPre) error {
		cancel()
		return nil
	})

	tx := f.engine.Deposit(ctx, account, dec("5"))

	require.Equal(t, shared.ResultSuccess, tx.Result)
	snap, err := f.store.Load(context.Background(), "dollars", account.Owner())
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(snap.Balance))
}

func TestEngine_ConcurrentDeposits(t *testing.T) {
	f := newEngineFixture(t, app.EngineOptions{})
	account := newAccount(t, dollars(t), "0")

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := f.engine.Deposit(context.Background(), account, dec("1.25"))
			assert.Equal(t, shared.ResultSuccess, tx.Result)
		}()
	}
	wg.Wait()

	assert.True(t, dec("125").Equal(account.Balance()))
}
