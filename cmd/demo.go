package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"economy-ledger/app"
	"economy-ledger/shared"
)

// demoCmd walks through the main ledger operations against the configured storage.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a short simulation of ledger operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		currency, err := selectedCurrency()
		if err != nil {
			return err
		}
		key := currency.Key()

		fmt.Println("\n--- Simulating Operations ---")

		fmt.Println("\n[Step 1] Creating Accounts...")
		hundred := decimal.NewFromInt(100)
		alice, err := ledger.CreateAccount(ctx, app.CreateAccountCommand{Currency: key, Balance: &hundred})
		if err != nil {
			return fmt.Errorf("failed to create Alice's account: %w", err)
		}
		bob, err := ledger.CreateAccount(ctx, app.CreateAccountCommand{Currency: key})
		if err != nil {
			return fmt.Errorf("failed to create Bob's account: %w", err)
		}
		fmt.Printf(" -> Alice's Account ID: %s\n", alice.Owner())
		fmt.Printf(" -> Bob's Account ID: %s\n", bob.Owner())

		fmt.Println("\n[Step 2] Making a Deposit...")
		if err := demoTransaction(ctx, key, bob.Owner(), shared.TransactionDeposit, "25"); err != nil {
			return err
		}

		fmt.Println("\n[Step 3] Withdrawing more than Bob holds (should be rejected)...")
		if err := demoTransaction(ctx, key, bob.Owner(), shared.TransactionWithdraw, "1000"); err != nil {
			return err
		}

		fmt.Println("\n[Step 4] Transferring 50, then 75, then 50 from Alice to Bob...")
		for _, raw := range []string{"50", "75", "50"} {
			tx, err := ledger.TransferFunds(ctx, app.TransferCommand{
				Currency: key,
				From:     alice.Owner(),
				To:       bob.Owner(),
				Amount:   decimal.RequireFromString(raw),
			})
			if err != nil {
				return err
			}
			fmt.Printf(" -> Transfer of %s: %s\n", currency.Format(tx.Amount), tx.Result)
		}

		fmt.Println("\n[Step 5] Querying Final Balances...")
		for name, owner := range map[string]uuid.UUID{"Alice": alice.Owner(), "Bob": bob.Owner()} {
			balance, err := ledger.GetBalance(ctx, app.GetBalanceQuery{Currency: key, Owner: owner})
			if err != nil {
				return err
			}
			fmt.Printf(" -> %s: %s\n", name, currency.Format(balance))
		}

		fmt.Println("\n[Step 6] Querying Bob's History...")
		entries, err := ledger.History(ctx, app.GetHistoryQuery{Currency: key, Owner: bob.Owner()})
		if err != nil {
			return err
		}
		for _, entry := range entries {
			printEntry(entry)
		}

		fmt.Println("\n--- Simulation Complete ---")
		return nil
	},
}

func demoTransaction(ctx context.Context, currency string, owner uuid.UUID, kind shared.TransactionType, amount string) error {
	tx, err := ledger.Execute(ctx, app.TransactionCommand{
		Currency: currency,
		Owner:    owner,
		Type:     kind,
		Amount:   decimal.RequireFromString(amount),
	})
	if err != nil {
		return err
	}
	fmt.Printf(" -> %s of %s: %s\n", kind, tx.Currency.Format(tx.Amount), tx.Result)
	return nil
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
