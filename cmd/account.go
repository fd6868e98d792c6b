package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"economy-ledger/app"
)

var (
	accountID      string
	accountBalance string
	accountVirtual bool
)

// accountCmd represents the account command group
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage ledger accounts",
	Long:  `Provides commands to create and delete accounts.`,
}

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	Long: `Creates a new account in the selected currency (primary when --currency is empty).
If --id is not provided, a new owner UUID will be generated.
The account starts at the currency starting balance unless --balance is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := app.CreateAccountCommand{
			Currency: currencyKey,
			Virtual:  accountVirtual,
		}
		if accountID != "" {
			owner, err := uuid.Parse(accountID)
			if err != nil {
				return fmt.Errorf("invalid account ID %q: %w", accountID, err)
			}
			input.Owner = owner
		}
		if accountBalance != "" {
			balance, err := decimal.NewFromString(accountBalance)
			if err != nil {
				return fmt.Errorf("invalid balance format: %q. %w", accountBalance, err)
			}
			input.Balance = &balance
		}

		account, err := ledger.CreateAccount(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		fmt.Printf("Account '%s' created successfully.\n", account.Owner())
		fmt.Printf("  Currency: %s\n", account.Currency().Key())
		fmt.Printf("  Balance:  %s\n", account.Currency().Format(account.Balance()))
		if account.Virtual() {
			fmt.Println("  Virtual:  yes")
		}
		return nil
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an account",
	Long:  `Removes the account of --id in the selected currency, along with its history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner("id", accountID)
		if err != nil {
			return err
		}
		currency, err := selectedCurrency()
		if err != nil {
			return err
		}

		exists, err := ledger.HasAccountIn(cmd.Context(), currency, owner)
		if err != nil {
			return err
		}
		if !exists {
			fmt.Printf("Account '%s' has no %s account.\n", owner, currency.Key())
			return nil
		}
		if err := ledger.DeleteAccountIn(cmd.Context(), currency, owner); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		fmt.Printf("Account '%s' (%s) deleted.\n", owner, currency.Key())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(createCmd)
	accountCmd.AddCommand(deleteCmd)

	createCmd.Flags().StringVar(&accountID, "id", "", "Optional owner UUID for the account (generated if empty)")
	createCmd.Flags().StringVarP(&accountBalance, "balance", "b", "", "Optional initial balance (e.g., 100.50)")
	createCmd.Flags().BoolVar(&accountVirtual, "virtual", false, "Mark the account as virtual (not owned by a player)")

	deleteCmd.Flags().StringVar(&accountID, "id", "", "Owner UUID of the account to delete (required)")
	_ = deleteCmd.MarkFlagRequired("id")
}
