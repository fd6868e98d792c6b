package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/store"
)

type LedgerOptions struct {
	Currencies  *CurrencyRegistry
	Persistence store.Persistence
	Engine      EngineOptions
	Logger      *zap.Logger
}

// Ledger is the application layer. It wires the currency registry, the account
// store, the engine and the transfer coordinator together, defaults to the primary
// currency where none is given, and keeps a journal of completed operations.
type Ledger struct {
	currencies *CurrencyRegistry
	accounts   *AccountStore
	engine     *Engine
	transfers  *TransferCoordinator
	gateway    *events.Gateway
	journal    *store.InMemoryJournal
	logger     *zap.Logger
}

// NewLedger wires the ledger. It fails when a reset override does not fit its currency.
func NewLedger(opts LedgerOptions) (*Ledger, error) {
	if opts.Currencies == nil || opts.Persistence == nil {
		panic("app: Ledger requires a currency registry and persistence")
	}
	if err := ValidateResetOverrides(opts.Currencies, opts.Engine.ResetOverrides); err != nil {
		return nil, fmt.Errorf("invalid reset overrides: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engineOpts := opts.Engine
	if engineOpts.Logger == nil {
		engineOpts.Logger = logger.Named("engine")
	}

	gateway := events.NewGateway()
	journal := store.NewInMemoryJournal()
	gateway.OnTransactionPost(journal.RecordTransaction)
	gateway.OnTransferPost(journal.RecordTransfer)

	engine := NewEngine(opts.Persistence, gateway, engineOpts)
	accounts := NewAccountStore(opts.Persistence, opts.Currencies, logger.Named("accounts"))
	accounts.lockTimeout = engine.lockTimeout
	return &Ledger{
		currencies: opts.Currencies,
		accounts:   accounts,
		engine:     engine,
		transfers:  NewTransferCoordinator(engine),
		gateway:    gateway,
		journal:    journal,
		logger:     logger,
	}, nil
}

func (l *Ledger) Currencies() *CurrencyRegistry { return l.currencies }

func (l *Ledger) AccountStore() *AccountStore { return l.accounts }

// Gateway is where plugins register transaction and transfer observers.
func (l *Ledger) Gateway() *events.Gateway { return l.gateway }

func (l *Ledger) Engine() *Engine { return l.engine }

func (l *Ledger) Transfers() *TransferCoordinator { return l.transfers }

// currency resolves key, or the primary currency when key is empty.
func (l *Ledger) currency(key string) (*domain.Currency, error) {
	if key == "" {
		return l.currencies.Primary()
	}
	c, ok := l.currencies.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, key)
	}
	return c, nil
}

// --- Account access ---

// Account returns the primary-currency account of owner, creating it on first access.
func (l *Ledger) Account(ctx context.Context, owner uuid.UUID, modifiers ...domain.AccountModifier) (*domain.Account, error) {
	primary, err := l.currencies.Primary()
	if err != nil {
		return nil, err
	}
	return l.accounts.Account(ctx, primary, owner, modifiers...)
}

func (l *Ledger) AccountIn(ctx context.Context, currency *domain.Currency, owner uuid.UUID, modifiers ...domain.AccountModifier) (*domain.Account, error) {
	return l.accounts.Account(ctx, currency, owner, modifiers...)
}

func (l *Ledger) HasAccount(ctx context.Context, owner uuid.UUID) (bool, error) {
	primary, err := l.currencies.Primary()
	if err != nil {
		return false, err
	}
	return l.accounts.HasAccount(ctx, primary, owner)
}

func (l *Ledger) HasAccountIn(ctx context.Context, currency *domain.Currency, owner uuid.UUID) (bool, error) {
	return l.accounts.HasAccount(ctx, currency, owner)
}

// DeleteAccount removes the primary-currency account of owner along with its history.
func (l *Ledger) DeleteAccount(ctx context.Context, owner uuid.UUID) error {
	primary, err := l.currencies.Primary()
	if err != nil {
		return err
	}
	return l.DeleteAccountIn(ctx, primary, owner)
}

func (l *Ledger) DeleteAccountIn(ctx context.Context, currency *domain.Currency, owner uuid.UUID) error {
	if err := l.accounts.Delete(ctx, currency, owner); err != nil {
		return err
	}
	l.journal.Forget(domain.AccountKey{Currency: currency.Key(), Owner: owner})
	return nil
}

// Accounts groups every known account by currency.
func (l *Ledger) Accounts(ctx context.Context) (map[*domain.Currency][]*domain.Account, error) {
	grouped := make(map[*domain.Currency][]*domain.Account)
	for _, c := range l.currencies.Registered() {
		accounts, err := l.accounts.All(ctx, c)
		if err != nil {
			return nil, err
		}
		grouped[c] = accounts
	}
	return grouped, nil
}

func (l *Ledger) Save(ctx context.Context, account *domain.Account) error {
	return l.accounts.Save(ctx, account)
}

// --- Composers ---

func (l *Ledger) Transaction() *TransactionComposer {
	return NewTransactionComposer(l.engine)
}

func (l *Ledger) Transfer() *TransferComposer {
	return NewTransferComposer(l.transfers)
}

// --- Command Handlers ---

func (l *Ledger) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*domain.Account, error) {
	currency, err := l.currency(cmd.Currency)
	if err != nil {
		return nil, err
	}
	owner := cmd.Owner
	if owner == uuid.Nil {
		owner = uuid.New()
		l.logger.Info("no owner provided, generated new owner", zap.String("owner", owner.String()))
	}

	exists, err := l.accounts.HasAccount(ctx, currency, owner)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewDomainError("account %s:%s already exists", currency.Key(), owner)
	}

	var modifiers []domain.AccountModifier
	if cmd.Balance != nil {
		modifiers = append(modifiers, domain.WithBalance(*cmd.Balance))
	}
	if cmd.Virtual {
		modifiers = append(modifiers, domain.Virtual())
	}
	return l.accounts.Account(ctx, currency, owner, modifiers...)
}

// Execute runs a single-account transaction. A nil error only means the request
// reached the engine; the business outcome is the transaction result.
func (l *Ledger) Execute(ctx context.Context, cmd TransactionCommand) (*domain.Transaction, error) {
	currency, err := l.currency(cmd.Currency)
	if err != nil {
		return nil, err
	}
	account, err := l.accounts.Account(ctx, currency, cmd.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s:%s for %s: %w", currency.Key(), cmd.Owner, cmd.Type, err)
	}
	return l.Transaction().
		Account(account).
		Type(cmd.Type).
		Amount(cmd.Amount).
		Build(ctx)
}

func (l *Ledger) TransferFunds(ctx context.Context, cmd TransferCommand) (*domain.TransferTransaction, error) {
	currency, err := l.currency(cmd.Currency)
	if err != nil {
		return nil, err
	}
	from, err := l.accounts.Account(ctx, currency, cmd.From)
	if err != nil {
		return nil, fmt.Errorf("failed to load source account %s:%s for transfer: %w", currency.Key(), cmd.From, err)
	}
	to, err := l.accounts.Account(ctx, currency, cmd.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load target account %s:%s for transfer: %w", currency.Key(), cmd.To, err)
	}
	return l.Transfer().
		From(from).
		To(to).
		Amount(cmd.Amount).
		Build(ctx)
}

// --- Query Handlers ---

func (l *Ledger) GetBalance(ctx context.Context, query GetBalanceQuery) (decimal.Decimal, error) {
	currency, err := l.currency(query.Currency)
	if err != nil {
		return decimal.Zero, err
	}
	exists, err := l.accounts.HasAccount(ctx, currency, query.Owner)
	if err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, fmt.Errorf("%w: %s:%s", domain.ErrAccountNotFound, currency.Key(), query.Owner)
	}
	account, err := l.accounts.Account(ctx, currency, query.Owner)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance(), nil
}

// History pages the completed operations of an account, oldest first.
// A non-positive limit returns everything after skip.
func (l *Ledger) History(ctx context.Context, query GetHistoryQuery) ([]store.JournalEntry, error) {
	currency, err := l.currency(query.Currency)
	if err != nil {
		return nil, err
	}
	key := domain.AccountKey{Currency: currency.Key(), Owner: query.Owner}
	entries := l.journal.Page(key, query.Skip, query.Limit)
	if len(entries) > 0 {
		return entries, nil
	}

	exists, err := l.accounts.HasAccount(ctx, currency, query.Owner)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: cannot get history: account %s not found", domain.ErrAccountNotFound, key)
	}
	return entries, nil
}
