package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/shared"
	"economy-ledger/store"
)

const DefaultLockTimeout = 5 * time.Second

// Recorder observes every finished transaction, whatever its result.
type Recorder interface {
	RecordTransaction(tx *domain.Transaction)
	RecordTransfer(tx *domain.TransferTransaction)
}

type noopRecorder struct{}

func (noopRecorder) RecordTransaction(*domain.Transaction)      {}
func (noopRecorder) RecordTransfer(*domain.TransferTransaction) {}

type EngineOptions struct {
	// LockTimeout bounds the wait for account locks. DefaultLockTimeout when zero.
	LockTimeout time.Duration
	// ResetOverrides replaces the starting balance used by Reset, keyed by currency key.
	ResetOverrides map[string]decimal.Decimal
	Recorder       Recorder
	Logger         *zap.Logger
}

// Engine applies single-account balance mutations. Every mutation runs under
// the account lock, is announced by a cancellable pre event and, once saved,
// summarised by a post event fired after the lock is released.
type Engine struct {
	persistence    store.Persistence
	gateway        *events.Gateway
	lockTimeout    time.Duration
	resetOverrides map[string]decimal.Decimal
	recorder       Recorder
	logger         *zap.Logger
}

func NewEngine(persistence store.Persistence, gateway *events.Gateway, opts EngineOptions) *Engine {
	if persistence == nil || gateway == nil {
		panic("app: Engine requires persistence and an event gateway")
	}
	e := &Engine{
		persistence:    persistence,
		gateway:        gateway,
		lockTimeout:    opts.LockTimeout,
		resetOverrides: make(map[string]decimal.Decimal, len(opts.ResetOverrides)),
		recorder:       opts.Recorder,
		logger:         opts.Logger,
	}
	if e.lockTimeout <= 0 {
		e.lockTimeout = DefaultLockTimeout
	}
	for key, amount := range opts.ResetOverrides {
		e.resetOverrides[strings.ToLower(strings.TrimSpace(key))] = amount
	}
	if e.recorder == nil {
		e.recorder = noopRecorder{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

func (e *Engine) Set(ctx context.Context, account *domain.Account, amount decimal.Decimal) *domain.Transaction {
	return e.execute(ctx, account, amount, shared.TransactionSet, func() shared.ResultType {
		return account.HandleSet(amount)
	})
}

func (e *Engine) Withdraw(ctx context.Context, account *domain.Account, amount decimal.Decimal) *domain.Transaction {
	return e.execute(ctx, account, amount, shared.TransactionWithdraw, func() shared.ResultType {
		return account.HandleWithdraw(amount)
	})
}

func (e *Engine) Deposit(ctx context.Context, account *domain.Account, amount decimal.Decimal) *domain.Transaction {
	return e.execute(ctx, account, amount, shared.TransactionDeposit, func() shared.ResultType {
		return account.HandleDeposit(amount)
	})
}

// Reset moves the balance back to the currency starting balance, or to the
// configured override for that currency.
func (e *Engine) Reset(ctx context.Context, account *domain.Account) *domain.Transaction {
	var target decimal.Decimal
	if account != nil {
		target = e.ResetBalance(account.Currency())
	}
	return e.execute(ctx, account, target, shared.TransactionReset, func() shared.ResultType {
		return account.HandleReset(target)
	})
}

func (e *Engine) ResetBalance(currency *domain.Currency) decimal.Decimal {
	if override, ok := e.resetOverrides[currency.Key()]; ok {
		return override
	}
	return currency.StartingBalance()
}

// ValidateResetOverrides rejects overrides for unregistered currencies and
// overrides that are not a valid balance of their currency.
func ValidateResetOverrides(currencies *CurrencyRegistry, overrides map[string]decimal.Decimal) error {
	var errs error
	for key, amount := range overrides {
		currency, ok := currencies.Lookup(key)
		switch {
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("%w: reset override for %s", domain.ErrUnknownCurrency, key))
		case !currency.Fits(amount):
			errs = multierr.Append(errs, domain.NewDomainError("reset override %s exceeds the %d decimals of %s", amount, currency.Decimals(), currency.Key()))
		case !currency.Within(amount):
			errs = multierr.Append(errs, domain.NewDomainError("reset override %s is outside the bounds of %s", amount, currency.Key()))
		}
	}
	return errs
}

func (e *Engine) validate(account *domain.Account, amount decimal.Decimal, kind shared.TransactionType) error {
	if account == nil {
		return fmt.Errorf("%w: account", domain.ErrMissingRequiredField)
	}
	currency := account.Currency()
	if !currency.Fits(amount) {
		return domain.NewDomainError("amount %s exceeds the %d decimals of %s", amount, currency.Decimals(), currency.Key())
	}
	switch kind {
	case shared.TransactionWithdraw, shared.TransactionDeposit:
		if amount.IsNegative() {
			return domain.NewDomainError("%s amount cannot be negative: %s", kind, amount)
		}
	case shared.TransactionSet:
		if !currency.Within(amount) {
			return domain.NewDomainError("balance %s is outside the bounds of %s", amount, currency.Key())
		}
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, account *domain.Account, amount decimal.Decimal, kind shared.TransactionType, mutate func() shared.ResultType) *domain.Transaction {
	tx := &domain.Transaction{Account: account, Amount: amount, Type: kind}
	if account != nil {
		tx.Currency = account.Currency()
	}
	defer func() { e.recorder.RecordTransaction(tx) }()

	if err := e.validate(account, amount, kind); err != nil {
		tx.Result = shared.ResultInvalid
		tx.Err = err
		e.logger.Info("transaction rejected", zap.Stringer("type", kind), zap.Error(err))
		return tx
	}
	fields := []zap.Field{
		zap.Stringer("type", kind),
		zap.String("account", account.Key().String()),
		zap.String("amount", amount.String()),
	}

	release, err := e.acquire(ctx, account)
	if err != nil {
		tx.Result = shared.ResultFailed
		tx.Err = err
		e.logger.Warn("transaction failed to lock account", append(fields, zap.Error(err))...)
		return tx
	}
	if account.Deleted() {
		release()
		tx.Result = shared.ResultFailed
		tx.Err = fmt.Errorf("%w: %s", domain.ErrAccountDeleted, account.Key())
		e.logger.Warn("transaction on deleted account", fields...)
		return tx
	}

	cancelled, err := e.gateway.FireTransactionPre(events.NewTransactionPre(account, amount, kind))
	tx.Err = err
	if cancelled {
		release()
		tx.Result = shared.ResultCancelled
		e.logger.Info("transaction cancelled by observer", fields...)
		return tx
	}

	previous := account.Balance()
	tx.Result = mutate()
	if !tx.Result.Successful() {
		release()
		e.logger.Info("transaction rejected", append(fields, zap.Stringer("result", tx.Result))...)
		return tx
	}

	// Past the pre event the operation runs to completion even if the caller gives up.
	if err := e.persistence.Save(context.WithoutCancel(ctx), domain.CreateSnapshot(account)); err != nil {
		account.HandleSet(previous)
		release()
		tx.Result = shared.ResultFailed
		tx.Err = multierr.Append(tx.Err, fmt.Errorf("failed to save account %s: %w", account.Key(), err))
		e.logger.Error("transaction reverted after save failure", append(fields, zap.Error(err))...)
		return tx
	}
	release()

	tx.Err = multierr.Append(tx.Err, e.gateway.FireTransactionPost(events.NewTransactionPost(*tx)))
	e.logger.Info("transaction successful", append(fields, zap.String("balance", account.Balance().String()))...)
	return tx
}

// acquire locks accounts in the given order, all within one lock timeout.
// The returned release unlocks them in reverse order.
func (e *Engine) acquire(ctx context.Context, accounts ...*domain.Account) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	held := make([]*domain.Account, 0, len(accounts))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
	for _, account := range accounts {
		if err := account.Lock(lockCtx); err != nil {
			release()
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("timed out after %s: %w", e.lockTimeout, err)
			}
			return nil, err
		}
		held = append(held, account)
	}
	return release, nil
}
