// Package metrics counts ledger outcomes for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"economy-ledger/domain"
)

const namespace = "ledger"

// Collector records every finished transaction and transfer by outcome.
type Collector struct {
	transactions *prometheus.CounterVec
	transfers    *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// NewCollector registers the ledger counters on a fresh registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()
	return NewCollectorWith(registry, registry)
}

func NewCollectorWith(registerer prometheus.Registerer, gatherer prometheus.Gatherer) (*Collector, error) {
	c := &Collector{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Single-account transactions by currency, type and result.",
		}, []string{"currency", "type", "result"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Transfers by currency and result.",
		}, []string{"currency", "result"}),
		gatherer: gatherer,
	}
	for _, collector := range []prometheus.Collector{c.transactions, c.transfers} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func currencyLabel(c *domain.Currency) string {
	if c == nil {
		return "unknown"
	}
	return c.Key()
}

func (c *Collector) RecordTransaction(tx *domain.Transaction) {
	c.transactions.WithLabelValues(currencyLabel(tx.Currency), tx.Type.String(), tx.Result.String()).Inc()
}

func (c *Collector) RecordTransfer(tx *domain.TransferTransaction) {
	c.transfers.WithLabelValues(currencyLabel(tx.Currency), tx.Result.String()).Inc()
}

// Handler serves the registry the collector was registered with.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Transactions exposes the transaction counter, mostly for tests.
func (c *Collector) Transactions() *prometheus.CounterVec { return c.transactions }

func (c *Collector) Transfers() *prometheus.CounterVec { return c.transfers }
