package domain_test

import (
	"github.com/shopspring/decimal"

	"economy-ledger/domain"
)

// Helper to create decimals in tests
func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustCurrency(cfg domain.CurrencyConfig) *domain.Currency {
	c, err := domain.NewCurrency(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func dollars() *domain.Currency {
	return mustCurrency(domain.CurrencyConfig{
		Key:      "Dollars",
		Singular: "dollar",
		Plural:   "dollars",
		Symbol:   "$",
		Decimals: 2,
		Primary:  true,
	})
}
