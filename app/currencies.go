package app

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"economy-ledger/domain"
)

// CurrencyRegistry owns the registered currencies. At most one of them is primary.
type CurrencyRegistry struct {
	mu         sync.RWMutex
	currencies map[string]*domain.Currency
	primary    *domain.Currency
	logger     *zap.Logger
}

func NewCurrencyRegistry(logger *zap.Logger) *CurrencyRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurrencyRegistry{
		currencies: make(map[string]*domain.Currency),
		logger:     logger,
	}
}

// Primary returns domain.ErrNoPrimaryCurrency when the deployment registered none.
func (r *CurrencyRegistry) Primary() (*domain.Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.primary == nil {
		return nil, domain.ErrNoPrimaryCurrency
	}
	return r.primary, nil
}

func (r *CurrencyRegistry) Lookup(key string) (*domain.Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[strings.ToLower(strings.TrimSpace(key))]
	return c, ok
}

// Register adds currency unless its key is taken or it would be a second primary.
func (r *CurrencyRegistry) Register(currency *domain.Currency) bool {
	if currency == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.currencies[currency.Key()]; exists {
		r.logger.Warn("currency already registered", zap.String("currency", currency.Key()))
		return false
	}
	if currency.Primary() && r.primary != nil {
		r.logger.Warn("rejected second primary currency",
			zap.String("currency", currency.Key()),
			zap.String("primary", r.primary.Key()))
		return false
	}

	r.currencies[currency.Key()] = currency
	if currency.Primary() {
		r.primary = currency
	}
	r.logger.Info("currency registered", zap.String("currency", currency.Key()), zap.Bool("primary", currency.Primary()))
	return true
}

func (r *CurrencyRegistry) Registered() []*domain.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
