package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"economy-ledger/shared"
)

const maxDecimals = 18

// SymbolFormatting places a currency symbol before or after the amount.
type SymbolFormatting string

const (
	SymbolBefore SymbolFormatting = "BEFORE"
	SymbolAfter  SymbolFormatting = "AFTER"
)

// CurrencyConfig holds the fields a Currency is built from.
type CurrencyConfig struct {
	Key             string
	Singular        string
	Plural          string
	Symbol          string
	Formatting      SymbolFormatting
	Decimals        int32
	StartingBalance decimal.Decimal
	Primary         bool
	Transferable    shared.TriState
	// Floor is the lowest balance an account may reach. Zero when unset.
	Floor decimal.NullDecimal
	// MaxBalance caps balances. Unbounded when unset.
	MaxBalance decimal.NullDecimal
}

// Currency is a named unit of value. It is immutable once built.
type Currency struct {
	key             string
	singular        string
	plural          string
	symbol          string
	formatting      SymbolFormatting
	decimals        int32
	startingBalance decimal.Decimal
	primary         bool
	transferable    shared.TriState
	floor           decimal.Decimal
	maxBalance      decimal.NullDecimal
}

func NewCurrency(cfg CurrencyConfig) (*Currency, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Key))
	if key == "" {
		return nil, NewDomainError("currency key cannot be empty")
	}
	if cfg.Decimals < 0 || cfg.Decimals > maxDecimals {
		return nil, NewDomainError("currency %s: decimals must be between 0 and %d, got %d", key, maxDecimals, cfg.Decimals)
	}

	floor := decimal.Zero
	if cfg.Floor.Valid {
		floor = cfg.Floor.Decimal
	}
	if cfg.MaxBalance.Valid && cfg.MaxBalance.Decimal.LessThan(floor) {
		return nil, NewDomainError("currency %s: max balance %s is below floor %s", key, cfg.MaxBalance.Decimal, floor)
	}
	if cfg.StartingBalance.LessThan(floor) {
		return nil, NewDomainError("currency %s: starting balance %s is below floor %s", key, cfg.StartingBalance, floor)
	}
	if cfg.MaxBalance.Valid && cfg.StartingBalance.GreaterThan(cfg.MaxBalance.Decimal) {
		return nil, NewDomainError("currency %s: starting balance %s exceeds max balance %s", key, cfg.StartingBalance, cfg.MaxBalance.Decimal)
	}

	formatting := cfg.Formatting
	if formatting == "" {
		formatting = SymbolBefore
	}
	if formatting != SymbolBefore && formatting != SymbolAfter {
		return nil, NewDomainError("currency %s: invalid symbol formatting %q", key, formatting)
	}

	singular := cfg.Singular
	if singular == "" {
		singular = key
	}
	plural := cfg.Plural
	if plural == "" {
		plural = singular
	}

	return &Currency{
		key:             key,
		singular:        singular,
		plural:          plural,
		symbol:          cfg.Symbol,
		formatting:      formatting,
		decimals:        cfg.Decimals,
		startingBalance: cfg.StartingBalance,
		primary:         cfg.Primary,
		transferable:    cfg.Transferable,
		floor:           floor,
		maxBalance:      cfg.MaxBalance,
	}, nil
}

func (c *Currency) Key() string                      { return c.key }
func (c *Currency) Singular() string                 { return c.singular }
func (c *Currency) Plural() string                   { return c.plural }
func (c *Currency) Symbol() string                   { return c.symbol }
func (c *Currency) Formatting() SymbolFormatting     { return c.formatting }
func (c *Currency) Decimals() int32                  { return c.decimals }
func (c *Currency) StartingBalance() decimal.Decimal { return c.startingBalance }
func (c *Currency) Primary() bool                    { return c.primary }
func (c *Currency) Transferable() shared.TriState    { return c.transferable }
func (c *Currency) Floor() decimal.Decimal           { return c.floor }
func (c *Currency) MaxBalance() decimal.NullDecimal  { return c.maxBalance }

// Fits reports whether amount carries no more fractional digits than the currency shows.
func (c *Currency) Fits(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(c.decimals))
}

// Within reports whether balance respects the floor and the max balance.
func (c *Currency) Within(balance decimal.Decimal) bool {
	if balance.LessThan(c.floor) {
		return false
	}
	return !c.maxBalance.Valid || balance.LessThanOrEqual(c.maxBalance.Decimal)
}

// Format renders amount with the currency precision and symbol.
func (c *Currency) Format(amount decimal.Decimal) string {
	text := amount.StringFixed(c.decimals)
	if c.symbol == "" {
		name := c.plural
		if amount.Abs().Equal(decimal.NewFromInt(1)) {
			name = c.singular
		}
		return text + " " + name
	}
	if c.formatting == SymbolAfter {
		return text + c.symbol
	}
	return c.symbol + text
}

func (c *Currency) String() string {
	return c.key
}
