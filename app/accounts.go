package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"economy-ledger/domain"
	"economy-ledger/store"
)

// AccountStore caches accounts by (currency, owner) and loads misses from persistence.
// There is never more than one live Account per key.
type AccountStore struct {
	persistence store.Persistence
	currencies  *CurrencyRegistry
	lockTimeout time.Duration
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[domain.AccountKey]*domain.Account
	group singleflight.Group
}

func NewAccountStore(persistence store.Persistence, currencies *CurrencyRegistry, logger *zap.Logger) *AccountStore {
	if persistence == nil || currencies == nil {
		panic("app: AccountStore requires persistence and a currency registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountStore{
		persistence: persistence,
		currencies:  currencies,
		lockTimeout: DefaultLockTimeout,
		logger:      logger,
		cache:       make(map[domain.AccountKey]*domain.Account),
	}
}

func (s *AccountStore) cached(key domain.AccountKey) (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.cache[key]
	return a, ok
}

// Account returns the account of owner in currency, creating it on first access.
// Modifiers only apply when this call creates the account; concurrent callers for
// the same key share the creation of whichever call got there first.
func (s *AccountStore) Account(ctx context.Context, currency *domain.Currency, owner uuid.UUID, modifiers ...domain.AccountModifier) (*domain.Account, error) {
	if currency == nil {
		return nil, fmt.Errorf("%w: currency", domain.ErrMissingRequiredField)
	}
	key := domain.AccountKey{Currency: currency.Key(), Owner: owner}
	if account, ok := s.cached(key); ok {
		return account, nil
	}

	// The shared load outlives any single caller; each caller only stops waiting.
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		if account, ok := s.cached(key); ok {
			return account, nil
		}
		account, err := s.loadOrCreate(detached, currency, owner, modifiers)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.cache[key]; ok {
			// All() adopted the persisted record while this call was creating it.
			return existing, nil
		}
		s.cache[key] = account
		return account, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for account %s: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Account), nil
	}
}

func (s *AccountStore) loadOrCreate(ctx context.Context, currency *domain.Currency, owner uuid.UUID, modifiers []domain.AccountModifier) (*domain.Account, error) {
	snap, err := s.persistence.Load(ctx, currency.Key(), owner)
	switch {
	case err == nil:
		account, err := domain.ApplySnapshot(currency, *snap)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("account loaded", zap.String("account", account.Key().String()))
		return account, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to load account %s:%s: %w", currency.Key(), owner, err)
	}

	account, err := domain.NewAccount(currency, owner, modifiers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s:%s: %w", currency.Key(), owner, err)
	}
	if err := s.persistence.Save(ctx, domain.CreateSnapshot(account)); err != nil {
		return nil, fmt.Errorf("failed to save new account %s: %w", account.Key(), err)
	}
	s.logger.Info("account created",
		zap.String("account", account.Key().String()),
		zap.String("balance", account.Balance().String()),
		zap.Bool("virtual", account.Virtual()))
	return account, nil
}

func (s *AccountStore) HasAccount(ctx context.Context, currency *domain.Currency, owner uuid.UUID) (bool, error) {
	if currency == nil {
		return false, fmt.Errorf("%w: currency", domain.ErrMissingRequiredField)
	}
	if _, ok := s.cached(domain.AccountKey{Currency: currency.Key(), Owner: owner}); ok {
		return true, nil
	}
	_, err := s.persistence.Load(ctx, currency.Key(), owner)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check account %s:%s: %w", currency.Key(), owner, err)
	}
	return true, nil
}

// Delete removes the account from persistence and evicts it from the cache.
// A cached account is locked for the duration and marked deleted, so holders of
// a stale reference can no longer write it back.
func (s *AccountStore) Delete(ctx context.Context, currency *domain.Currency, owner uuid.UUID) error {
	if currency == nil {
		return fmt.Errorf("%w: currency", domain.ErrMissingRequiredField)
	}
	key := domain.AccountKey{Currency: currency.Key(), Owner: owner}

	account, cached := s.cached(key)
	if cached {
		lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
		if err := account.Lock(lockCtx); err != nil {
			return fmt.Errorf("failed to lock account %s for deletion: %w", key, err)
		}
		defer account.Unlock()
	}

	if err := s.persistence.Delete(ctx, currency.Key(), owner); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", key, err)
	}

	s.mu.Lock()
	if s.cache[key] == account {
		delete(s.cache, key)
	}
	s.mu.Unlock()
	if cached {
		account.MarkDeleted()
	}
	s.logger.Info("account deleted", zap.String("account", key.String()))
	return nil
}

// Save writes the current state of account to persistence.
func (s *AccountStore) Save(ctx context.Context, account *domain.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", domain.ErrMissingRequiredField)
	}
	if account.Deleted() {
		return fmt.Errorf("%w: %s", domain.ErrAccountDeleted, account.Key())
	}
	if err := s.persistence.Save(ctx, domain.CreateSnapshot(account)); err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.Key(), err)
	}
	return nil
}

// All returns a snapshot of the accounts of currency, or of every registered
// currency when currency is nil. Later mutations are not reflected in the slice.
func (s *AccountStore) All(ctx context.Context, currency *domain.Currency) ([]*domain.Account, error) {
	currencies := []*domain.Currency{currency}
	if currency == nil {
		currencies = s.currencies.Registered()
	}

	var result []*domain.Account
	for _, c := range currencies {
		snaps, err := s.persistence.List(ctx, c.Key())
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts of %s: %w", c.Key(), err)
		}
		seen := make(map[domain.AccountKey]bool, len(snaps))
		for _, snap := range snaps {
			account, err := s.adopt(c, snap)
			if err != nil {
				return nil, err
			}
			seen[account.Key()] = true
			result = append(result, account)
		}
		s.mu.RLock()
		for key, account := range s.cache {
			if key.Currency == c.Key() && !seen[key] {
				result = append(result, account)
			}
		}
		s.mu.RUnlock()
	}
	return result, nil
}

// adopt returns the cached instance for snap, caching a fresh one when absent.
func (s *AccountStore) adopt(currency *domain.Currency, snap domain.AccountSnapshot) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.cache[snap.Key()]; ok {
		return account, nil
	}
	account, err := domain.ApplySnapshot(currency, snap)
	if err != nil {
		return nil, err
	}
	s.cache[snap.Key()] = account
	return account, nil
}
