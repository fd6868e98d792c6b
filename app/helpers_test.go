package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"economy-ledger/app"
	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/shared"
	"economy-ledger/store"
)

// Helper to create decimals in tests
func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var errDiskFull = errors.New("disk full")

// flakyStore is an in-memory store whose saves and loads can be made to fail.
type flakyStore struct {
	*store.InMemoryStore

	mu       sync.Mutex
	failSave func(domain.AccountSnapshot) bool
	failLoad error
	saves    int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{InMemoryStore: store.NewInMemoryStore()}
}

func (s *flakyStore) FailSaves(fn func(domain.AccountSnapshot) bool) {
	s.mu.Lock()
	s.failSave = fn
	s.mu.Unlock()
}

func (s *flakyStore) FailLoads(err error) {
	s.mu.Lock()
	s.failLoad = err
	s.mu.Unlock()
}

func (s *flakyStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *flakyStore) Save(ctx context.Context, snap domain.AccountSnapshot) error {
	s.mu.Lock()
	fail := s.failSave
	s.saves++
	s.mu.Unlock()
	if fail != nil && fail(snap) {
		return errDiskFull
	}
	return s.InMemoryStore.Save(ctx, snap)
}

func (s *flakyStore) Load(ctx context.Context, currency string, owner uuid.UUID) (*domain.AccountSnapshot, error) {
	s.mu.Lock()
	fail := s.failLoad
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.InMemoryStore.Load(ctx, currency, owner)
}

// countingRecorder counts every finished transaction and transfer by result.
type countingRecorder struct {
	mu           sync.Mutex
	transactions map[shared.ResultType]int
	transfers    map[shared.ResultType]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		transactions: make(map[shared.ResultType]int),
		transfers:    make(map[shared.ResultType]int),
	}
}

func (r *countingRecorder) RecordTransaction(tx *domain.Transaction) {
	r.mu.Lock()
	r.transactions[tx.Result]++
	r.mu.Unlock()
}

func (r *countingRecorder) RecordTransfer(tx *domain.TransferTransaction) {
	r.mu.Lock()
	r.transfers[tx.Result]++
	r.mu.Unlock()
}

func mustCurrency(t *testing.T, cfg domain.CurrencyConfig) *domain.Currency {
	t.Helper()
	c, err := domain.NewCurrency(cfg)
	require.NoError(t, err)
	return c
}

func dollars(t *testing.T) *domain.Currency {
	return mustCurrency(t, domain.CurrencyConfig{
		Key:      "dollars",
		Singular: "dollar",
		Symbol:   "$",
		Decimals: 2,
		Primary:  true,
	})
}

func newAccount(t *testing.T, c *domain.Currency, balance string) *domain.Account {
	t.Helper()
	a, err := domain.NewAccount(c, uuid.New(), domain.WithBalance(dec(balance)))
	require.NoError(t, err)
	return a
}

type engineFixture struct {
	engine   *app.Engine
	store    *flakyStore
	gateway  *events.Gateway
	recorder *countingRecorder
}

func newEngineFixture(t *testing.T, opts app.EngineOptions) engineFixture {
	t.Helper()
	f := engineFixture{
		store:    newFlakyStore(),
		gateway:  events.NewGateway(),
		recorder: newCountingRecorder(),
	}
	opts.Recorder = f.recorder
	opts.Logger = zaptest.NewLogger(t)
	f.engine = app.NewEngine(f.store, f.gateway, opts)
	return f
}
