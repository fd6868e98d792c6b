package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-ledger/domain"
	"economy-ledger/metrics"
	"economy-ledger/shared"
)

func dollars(t *testing.T) *domain.Currency {
	t.Helper()
	c, err := domain.NewCurrency(domain.CurrencyConfig{Key: "dollars", Decimals: 2, Primary: true})
	require.NoError(t, err)
	return c
}

func TestCollector_RecordTransaction(t *testing.T) {
	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	usd := dollars(t)

	collector.RecordTransaction(&domain.Transaction{Currency: usd, Type: shared.TransactionDeposit, Result: shared.ResultSuccess})
	collector.RecordTransaction(&domain.Transaction{Currency: usd, Type: shared.TransactionDeposit, Result: shared.ResultSuccess})
	collector.RecordTransaction(&domain.Transaction{Currency: usd, Type: shared.TransactionWithdraw, Result: shared.ResultNotEnoughFunds})
	collector.RecordTransaction(&domain.Transaction{Type: shared.TransactionSet, Result: shared.ResultInvalid})

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.Transactions().WithLabelValues("dollars", "DEPOSIT", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Transactions().WithLabelValues("dollars", "WITHDRAW", "NOT_ENOUGH_FUNDS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Transactions().WithLabelValues("unknown", "SET", "INVALID")))
	assert.Equal(t, 3, testutil.CollectAndCount(collector.Transactions()))
}

func TestCollector_RecordTransfer(t *testing.T) {
	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	usd := dollars(t)

	collector.RecordTransfer(&domain.TransferTransaction{Currency: usd, Result: shared.ResultSuccess})
	collector.RecordTransfer(&domain.TransferTransaction{Currency: usd, Result: shared.ResultCancelled})

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Transfers().WithLabelValues("dollars", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Transfers().WithLabelValues("dollars", "CANCELLED")))
}

func TestNewCollectorWith_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := metrics.NewCollectorWith(registry, registry)
	require.NoError(t, err)

	_, err = metrics.NewCollectorWith(registry, registry)
	assert.Error(t, err)
}

func TestCollector_Handler(t *testing.T) {
	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	owner, err := domain.NewAccount(dollars(t), uuid.New())
	require.NoError(t, err)
	collector.RecordTransaction(&domain.Transaction{Account: owner, Currency: owner.Currency(), Type: shared.TransactionReset, Result: shared.ResultSuccess})

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ledger_transactions_total{currency="dollars",result="SUCCESS",type="RESET"} 1`)
}
