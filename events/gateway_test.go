package events_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/shared"
)

func newAccount(t *testing.T) *domain.Account {
	t.Helper()
	c, err := domain.NewCurrency(domain.CurrencyConfig{Key: "dollars", Decimals: 2})
	require.NoError(t, err)
	a, err := domain.NewAccount(c, uuid.New())
	require.NoError(t, err)
	return a
}

func TestGateway_TransactionPre(t *testing.T) {
	account := newAccount(t)

	t.Run("RegistrationOrder", func(t *testing.T) {
		g := events.NewGateway()
		var order []int
		for i := 0; i < 3; i++ {
			g.OnTransactionPre(func(*events.TransactionPre) error {
				order = append(order, i)
				return nil
			})
		}
		cancelled, err := g.FireTransactionPre(events.NewTransactionPre(account, decimal.NewFromInt(1), shared.TransactionDeposit))
		assert.NoError(t, err)
		assert.False(t, cancelled)
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("CancelIsOneWayAndEveryObserverRuns", func(t *testing.T) {
		g := events.NewGateway()
		lastSawCancelled := false
		g.OnTransactionPre(func(e *events.TransactionPre) error {
			e.Cancel()
			return nil
		})
		g.OnTransactionPre(func(e *events.TransactionPre) error {
			lastSawCancelled = e.Cancelled()
			return nil
		})
		cancelled, err := g.FireTransactionPre(events.NewTransactionPre(account, decimal.NewFromInt(1), shared.TransactionWithdraw))
		assert.NoError(t, err)
		assert.True(t, cancelled)
		assert.True(t, lastSawCancelled)
	})

	t.Run("FailuresAreAggregated", func(t *testing.T) {
		g := events.NewGateway()
		boom := errors.New("boom")
		ran := false
		g.OnTransactionPre(func(*events.TransactionPre) error { return boom })
		g.OnTransactionPre(func(*events.TransactionPre) error { panic("observer bug") })
		g.OnTransactionPre(func(*events.TransactionPre) error {
			ran = true
			return nil
		})
		g.OnTransactionPre(nil)

		cancelled, err := g.FireTransactionPre(events.NewTransactionPre(account, decimal.NewFromInt(1), shared.TransactionSet))
		assert.False(t, cancelled)
		require.Error(t, err)
		assert.True(t, ran)
		assert.ErrorIs(t, err, boom)
		errs := multierr.Errors(err)
		require.Len(t, errs, 2)
		assert.Contains(t, errs[1].Error(), "panicked")
	})
}

func TestGateway_Transfer(t *testing.T) {
	from, to := newAccount(t), newAccount(t)
	g := events.NewGateway()

	var seen []events.EventType
	g.OnTransferPre(func(e *events.TransferPre) error {
		seen = append(seen, e.Type)
		assert.Equal(t, "dollars", e.Currency().Key())
		return nil
	})
	g.OnTransferPost(func(e events.TransferPost) error {
		seen = append(seen, e.Type)
		assert.Equal(t, from, e.From())
		assert.Equal(t, to, e.To())
		return nil
	})

	cancelled, err := g.FireTransferPre(events.NewTransferPre(from, to, decimal.NewFromInt(5)))
	require.NoError(t, err)
	assert.False(t, cancelled)
	tx := domain.TransferTransaction{Currency: from.Currency(), From: from, To: to, Amount: decimal.NewFromInt(5), Result: shared.ResultSuccess}
	require.NoError(t, g.FireTransferPost(events.NewTransferPost(tx)))
	assert.Equal(t, []events.EventType{events.TransferPreType, events.TransferPostType}, seen)
}

func TestGateway_TransactionPost(t *testing.T) {
	account := newAccount(t)
	g := events.NewGateway()
	var got events.TransactionPost
	g.OnTransactionPost(func(e events.TransactionPost) error {
		got = e
		return nil
	})

	tx := domain.Transaction{Account: account, Currency: account.Currency(), Amount: decimal.NewFromInt(3), Type: shared.TransactionDeposit, Result: shared.ResultSuccess}
	require.NoError(t, g.FireTransactionPost(events.NewTransactionPost(tx)))
	assert.Equal(t, account, got.Account())
	assert.Equal(t, events.TransactionPostType, got.GetBase().Type)
	assert.NotEqual(t, uuid.Nil, got.EventID)
}
