package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"economy-ledger/domain"
	"economy-ledger/shared"
)

// CurrencyDefinition is one entry of the currencies file. Amounts are decimal strings.
type CurrencyDefinition struct {
	Key             string `yaml:"key"`
	Singular        string `yaml:"singular"`
	Plural          string `yaml:"plural"`
	Symbol          string `yaml:"symbol"`
	Formatting      string `yaml:"formatting"`
	Decimals        int32  `yaml:"decimals"`
	StartingBalance string `yaml:"startingBalance"`
	Primary         bool   `yaml:"primary"`
	Transferable    *bool  `yaml:"transferable"`
	Floor           string `yaml:"floor"`
	MaxBalance      string `yaml:"maxBalance"`
}

type currenciesFile struct {
	Currencies []CurrencyDefinition `yaml:"currencies"`
}

// DefaultCurrency is used when no currencies file is configured.
func DefaultCurrency() CurrencyDefinition {
	return CurrencyDefinition{
		Key:             "dollars",
		Singular:        "dollar",
		Plural:          "dollars",
		Symbol:          "$",
		Formatting:      string(domain.SymbolBefore),
		Decimals:        2,
		StartingBalance: "0",
		Primary:         true,
	}
}

func ParseCurrencies(data []byte) ([]CurrencyDefinition, error) {
	var file currenciesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse currencies file: %w", err)
	}
	if len(file.Currencies) == 0 {
		return nil, fmt.Errorf("currencies file defines no currencies")
	}
	return file.Currencies, nil
}

func parseAmount(field, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return decimal.NewNullDecimal(amount), nil
}

// Build turns the definition into a domain currency.
func (d CurrencyDefinition) Build() (*domain.Currency, error) {
	starting, err := parseAmount("starting balance", d.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("currency %s: %w", d.Key, err)
	}
	floor, err := parseAmount("floor", d.Floor)
	if err != nil {
		return nil, fmt.Errorf("currency %s: %w", d.Key, err)
	}
	maxBalance, err := parseAmount("max balance", d.MaxBalance)
	if err != nil {
		return nil, fmt.Errorf("currency %s: %w", d.Key, err)
	}

	transferable := shared.Unknown
	if d.Transferable != nil {
		transferable = shared.TriStateOf(*d.Transferable)
	}

	return domain.NewCurrency(domain.CurrencyConfig{
		Key:             d.Key,
		Singular:        d.Singular,
		Plural:          d.Plural,
		Symbol:          d.Symbol,
		Formatting:      domain.SymbolFormatting(strings.ToUpper(strings.TrimSpace(d.Formatting))),
		Decimals:        d.Decimals,
		StartingBalance: starting.Decimal,
		Primary:         d.Primary,
		Transferable:    transferable,
		Floor:           floor,
		MaxBalance:      maxBalance,
	})
}
