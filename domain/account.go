package domain

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"economy-ledger/shared"
)

// AccountKey identifies an account: one balance per (currency, owner) pair.
type AccountKey struct {
	Currency string
	Owner    uuid.UUID
}

func (k AccountKey) String() string {
	return k.Currency + ":" + k.Owner.String()
}

// AccountOptions are the construction-time settings of a new account.
type AccountOptions struct {
	Balance decimal.Decimal
	Virtual bool
}

// AccountModifier adjusts the options of an account that is about to be created.
type AccountModifier func(AccountOptions) AccountOptions

// Virtual marks the account as not owned by a real actor.
func Virtual() AccountModifier {
	return func(o AccountOptions) AccountOptions {
		o.Virtual = true
		return o
	}
}

// WithBalance seeds the account with balance instead of the currency starting balance.
func WithBalance(balance decimal.Decimal) AccountModifier {
	return func(o AccountOptions) AccountOptions {
		o.Balance = balance
		return o
	}
}

// Account is the balance record for one (currency, owner) pair. Its balance
// changes only through the Handle* methods, which expect the caller to hold
// the account lock.
type Account struct {
	currency *Currency
	owner    uuid.UUID
	virtual  bool

	sem     *semaphore.Weighted
	deleted atomic.Bool

	mu      sync.RWMutex
	balance decimal.Decimal
}

func NewAccount(currency *Currency, owner uuid.UUID, modifiers ...AccountModifier) (*Account, error) {
	if currency == nil {
		return nil, NewDomainError("account currency cannot be nil")
	}
	if owner == uuid.Nil {
		return nil, NewDomainError("account owner cannot be empty")
	}

	opts := AccountOptions{Balance: currency.StartingBalance()}
	for _, modify := range modifiers {
		if modify != nil {
			opts = modify(opts)
		}
	}
	if !currency.Within(opts.Balance) {
		return nil, NewDomainError("initial balance %s is outside the bounds of currency %s", opts.Balance, currency.Key())
	}

	return &Account{
		currency: currency,
		owner:    owner,
		virtual:  opts.Virtual,
		sem:      semaphore.NewWeighted(1),
		balance:  opts.Balance,
	}, nil
}

func (a *Account) Currency() *Currency { return a.currency }
func (a *Account) Owner() uuid.UUID    { return a.owner }
func (a *Account) Virtual() bool       { return a.virtual }

func (a *Account) Key() AccountKey {
	return AccountKey{Currency: a.currency.Key(), Owner: a.owner}
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

// Lock acquires the account for a read-then-write step. It gives up when ctx is done.
func (a *Account) Lock(ctx context.Context) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire lock on account %s: %w", a.Key(), err)
	}
	return nil
}

func (a *Account) Unlock() {
	a.sem.Release(1)
}

// MarkDeleted retires the account. Callers must hold the account lock.
func (a *Account) MarkDeleted() {
	a.deleted.Store(true)
}

// Deleted reports whether the account was removed from its store. A deleted
// account must never be saved again.
func (a *Account) Deleted() bool {
	return a.deleted.Load()
}

// --- Command Handlers ---
// Each handler validates the business rule for its mutation and applies it
// only when the rule holds. The caller must hold the account lock.

func (a *Account) HandleSet(amount decimal.Decimal) shared.ResultType {
	if !a.currency.Within(amount) {
		return shared.ResultInvalid
	}
	a.store(amount)
	return shared.ResultSuccess
}

func (a *Account) HandleWithdraw(amount decimal.Decimal) shared.ResultType {
	if amount.IsNegative() {
		return shared.ResultInvalid
	}

	available := NewMoney(a.Balance(), a.currency.Key())
	remaining, err := available.Subtract(NewMoney(amount, a.currency.Key()))
	if err != nil {
		return shared.ResultFailed
	}
	below, _ := remaining.LessThan(NewMoney(a.currency.Floor(), a.currency.Key()))
	if below {
		return shared.ResultNotEnoughFunds
	}

	a.store(remaining.Amount)
	return shared.ResultSuccess
}

func (a *Account) HandleDeposit(amount decimal.Decimal) shared.ResultType {
	if amount.IsNegative() {
		return shared.ResultInvalid
	}

	current := NewMoney(a.Balance(), a.currency.Key())
	next, err := current.Add(NewMoney(amount, a.currency.Key()))
	if err != nil {
		return shared.ResultFailed
	}
	if limit := a.currency.MaxBalance(); limit.Valid {
		over, _ := next.GreaterThan(NewMoney(limit.Decimal, a.currency.Key()))
		if over {
			return shared.ResultNoRemainingSpace
		}
	}

	a.store(next.Amount)
	return shared.ResultSuccess
}

// HandleReset moves the balance back to target, normally the currency starting balance.
func (a *Account) HandleReset(target decimal.Decimal) shared.ResultType {
	if !a.currency.Within(target) {
		return shared.ResultFailed
	}
	a.store(target)
	return shared.ResultSuccess
}

func (a *Account) store(balance decimal.Decimal) {
	a.mu.Lock()
	a.balance = balance
	a.mu.Unlock()
}

func (a *Account) String() string {
	return fmt.Sprintf("%s(%s)", a.Key(), a.currency.Format(a.Balance()))
}
