package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"economy-ledger/domain"
	"economy-ledger/shared"
)

// TransactionComposer collects a single-account request and the messages
// bound to its possible outcomes. Build executes it.
type TransactionComposer struct {
	engine   *Engine
	account  *domain.Account
	amount   *decimal.Decimal
	kind     shared.TransactionType
	messages map[shared.ResultType]domain.MessageFunc
}

func NewTransactionComposer(engine *Engine) *TransactionComposer {
	return &TransactionComposer{
		engine:   engine,
		messages: make(map[shared.ResultType]domain.MessageFunc),
	}
}

func (c *TransactionComposer) Account(account *domain.Account) *TransactionComposer {
	c.account = account
	return c
}

// Amount is required for every type except reset.
func (c *TransactionComposer) Amount(amount decimal.Decimal) *TransactionComposer {
	c.amount = &amount
	return c
}

func (c *TransactionComposer) Type(kind shared.TransactionType) *TransactionComposer {
	c.kind = kind
	return c
}

func (c *TransactionComposer) Message(result shared.ResultType, message string) *TransactionComposer {
	return c.MessageFunc(result, func() string { return message })
}

// MessageFunc binds a lazily built message; fn runs at most once.
func (c *TransactionComposer) MessageFunc(result shared.ResultType, fn domain.MessageFunc) *TransactionComposer {
	c.messages[result] = domain.Memoize(fn)
	return c
}

func (c *TransactionComposer) check() error {
	if c.account == nil {
		return fmt.Errorf("%w: account", domain.ErrMissingRequiredField)
	}
	if c.kind == 0 {
		return fmt.Errorf("%w: type", domain.ErrMissingRequiredField)
	}
	if _, ok := shared.ParseTransactionType(c.kind.String()); !ok {
		return domain.NewDomainError("unknown transaction type %d", c.kind)
	}
	if c.kind != shared.TransactionReset && c.amount == nil {
		return fmt.Errorf("%w: amount", domain.ErrMissingRequiredField)
	}
	return nil
}

// Build runs the request through the engine and attaches the message bound to its result.
func (c *TransactionComposer) Build(ctx context.Context) (*domain.Transaction, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	var tx *domain.Transaction
	switch c.kind {
	case shared.TransactionSet:
		tx = c.engine.Set(ctx, c.account, *c.amount)
	case shared.TransactionWithdraw:
		tx = c.engine.Withdraw(ctx, c.account, *c.amount)
	case shared.TransactionDeposit:
		tx = c.engine.Deposit(ctx, c.account, *c.amount)
	case shared.TransactionReset:
		tx = c.engine.Reset(ctx, c.account)
	}
	tx.Message = c.messages[tx.Result]
	return tx, nil
}

// TransactionResult is delivered by Send.
type TransactionResult struct {
	Transaction *domain.Transaction
	Err         error
}

// Send runs Build on its own goroutine. The channel receives exactly one result.
func (c *TransactionComposer) Send(ctx context.Context) <-chan TransactionResult {
	out := make(chan TransactionResult, 1)
	go func() {
		tx, err := c.Build(ctx)
		out <- TransactionResult{Transaction: tx, Err: err}
		close(out)
	}()
	return out
}

// TransferComposer collects a transfer request and its outcome messages.
type TransferComposer struct {
	coordinator *TransferCoordinator
	from        *domain.Account
	to          *domain.Account
	amount      *decimal.Decimal
	messages    map[shared.ResultType]domain.MessageFunc
}

func NewTransferComposer(coordinator *TransferCoordinator) *TransferComposer {
	return &TransferComposer{
		coordinator: coordinator,
		messages:    make(map[shared.ResultType]domain.MessageFunc),
	}
}

func (c *TransferComposer) From(account *domain.Account) *TransferComposer {
	c.from = account
	return c
}

func (c *TransferComposer) To(account *domain.Account) *TransferComposer {
	c.to = account
	return c
}

func (c *TransferComposer) Amount(amount decimal.Decimal) *TransferComposer {
	c.amount = &amount
	return c
}

func (c *TransferComposer) Message(result shared.ResultType, message string) *TransferComposer {
	return c.MessageFunc(result, func() string { return message })
}

func (c *TransferComposer) MessageFunc(result shared.ResultType, fn domain.MessageFunc) *TransferComposer {
	c.messages[result] = domain.Memoize(fn)
	return c
}

func (c *TransferComposer) Build(ctx context.Context) (*domain.TransferTransaction, error) {
	switch {
	case c.from == nil:
		return nil, fmt.Errorf("%w: from", domain.ErrMissingRequiredField)
	case c.to == nil:
		return nil, fmt.Errorf("%w: to", domain.ErrMissingRequiredField)
	case c.amount == nil:
		return nil, fmt.Errorf("%w: amount", domain.ErrMissingRequiredField)
	}

	tx := c.coordinator.Transfer(ctx, c.from, c.to, *c.amount)
	tx.Message = c.messages[tx.Result]
	return tx, nil
}

// TransferResult is delivered by Send.
type TransferResult struct {
	Transaction *domain.TransferTransaction
	Err         error
}

func (c *TransferComposer) Send(ctx context.Context) <-chan TransferResult {
	out := make(chan TransferResult, 1)
	go func() {
		tx, err := c.Build(ctx)
		out <- TransferResult{Transaction: tx, Err: err}
		close(out)
	}()
	return out
}
