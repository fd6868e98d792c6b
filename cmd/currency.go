package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"economy-ledger/domain"
	"economy-ledger/shared"
)

var currencyCmd = &cobra.Command{
	Use:   "currency",
	Short: "Inspect registered currencies",
}

var currencyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered currencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, c := range ledger.Currencies().Registered() {
			marker := ""
			if c.Primary() {
				marker = " (primary)"
			}
			fmt.Printf("%s%s\n", c.Key(), marker)
			fmt.Printf("  Names:         %s / %s\n", c.Singular(), c.Plural())
			fmt.Printf("  Example:       %s\n", c.Format(c.StartingBalance()))
			fmt.Printf("  Decimals:      %d\n", c.Decimals())
			fmt.Printf("  Starting:      %s\n", c.StartingBalance())
			fmt.Printf("  Reset to:      %s\n", ledger.Engine().ResetBalance(c))
			fmt.Printf("  Floor:         %s\n", c.Floor())
			fmt.Printf("  Max balance:   %s\n", maxBalance(c))
			fmt.Printf("  Transferable:  %s\n", transferable(c))
		}
		return nil
	},
}

func maxBalance(c *domain.Currency) string {
	if m := c.MaxBalance(); m.Valid {
		return m.Decimal.String()
	}
	return "unbounded"
}

func transferable(c *domain.Currency) string {
	if c.Transferable() == shared.False {
		return "no"
	}
	return "yes"
}

// selectedCurrency resolves --currency, falling back to the primary currency.
func selectedCurrency() (*domain.Currency, error) {
	if currencyKey == "" {
		return ledger.Currencies().Primary()
	}
	c, ok := ledger.Currencies().Lookup(currencyKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, currencyKey)
	}
	return c, nil
}

func init() {
	rootCmd.AddCommand(currencyCmd)
	currencyCmd.AddCommand(currencyListCmd)
}
