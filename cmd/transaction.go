package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"economy-ledger/domain"
	"economy-ledger/shared"
)

// Variables to hold flag values for transaction commands
var (
	txAccountID string // Use a different name to avoid conflict with account.go's accountID
	txAmountStr string
	txFromID    string
	txToID      string
)

// stdoutRecipient prints the message bound to a transaction result.
type stdoutRecipient struct{}

func (stdoutRecipient) SendMessage(message string) {
	fmt.Println(message)
}

func parseOwner(flag, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("account ID (--%s) is required", flag)
	}
	owner, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account ID for --%s: %q. %w", flag, value, err)
	}
	return owner, nil
}

func parseAmount() (decimal.Decimal, error) {
	if txAmountStr == "" {
		return decimal.Zero, fmt.Errorf("amount (--amount) is required")
	}
	amount, err := decimal.NewFromString(txAmountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format: %q. %w", txAmountStr, err)
	}
	return amount, nil
}

// transactionCmd represents the transaction command group
var transactionCmd = &cobra.Command{
	Use:   "transaction",
	Short: "Perform balance transactions",
	Long:  `Provides commands for setting, depositing, withdrawing and resetting balances and for transferring funds between accounts.`,
}

// runTransaction builds one single-account transaction and prints its outcome.
func runTransaction(kind shared.TransactionType) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner("id", txAccountID)
		if err != nil {
			return err
		}
		currency, err := selectedCurrency()
		if err != nil {
			return err
		}

		composer := ledger.Transaction().Type(kind)
		if kind != shared.TransactionReset {
			amount, err := parseAmount()
			if err != nil {
				return err
			}
			composer.Amount(amount)
		}

		account, err := ledger.AccountIn(cmd.Context(), currency, owner)
		if err != nil {
			return fmt.Errorf("failed to load account %s: %w", owner, err)
		}

		tx, err := composer.
			Account(account).
			MessageFunc(shared.ResultSuccess, func() string {
				return fmt.Sprintf("%s successful. New balance: %s", kind, currency.Format(account.Balance()))
			}).
			Message(shared.ResultNotEnoughFunds, "Insufficient funds.").
			Message(shared.ResultNoRemainingSpace, "The account cannot hold that much.").
			Message(shared.ResultCancelled, "The transaction was cancelled.").
			Build(cmd.Context())
		if err != nil {
			return err
		}
		reportTransaction(tx)
		return nil
	}
}

func reportTransaction(tx *domain.Transaction) {
	fmt.Printf("%s of %s on '%s': %s\n", tx.Type, tx.Currency.Format(tx.Amount), tx.Account.Owner(), tx.Result)
	tx.Inform(stdoutRecipient{})
	if tx.Err != nil {
		fmt.Printf("  Details: %v\n", tx.Err)
	}
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Deposit funds into an account",
	Long:  `Adds the given amount to the balance of an account, bounded by the currency max balance.`,
	RunE:  runTransaction(shared.TransactionDeposit),
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw funds from an account",
	Long:  `Removes the given amount from the balance of an account, bounded by the currency floor.`,
	RunE:  runTransaction(shared.TransactionWithdraw),
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the balance of an account",
	Long:  `Replaces the balance of an account with the given amount.`,
	RunE:  runTransaction(shared.TransactionSet),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the balance of an account",
	Long:  `Moves the balance of an account back to the currency starting balance, or to the configured reset override.`,
	RunE:  runTransaction(shared.TransactionReset),
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer funds between two accounts",
	Long:  `Moves the given amount from one account to another account of the same currency. Either both sides change or neither does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseOwner("from", txFromID)
		if err != nil {
			return err
		}
		to, err := parseOwner("to", txToID)
		if err != nil {
			return err
		}
		amount, err := parseAmount()
		if err != nil {
			return err
		}
		currency, err := selectedCurrency()
		if err != nil {
			return err
		}

		source, err := ledger.AccountIn(cmd.Context(), currency, from)
		if err != nil {
			return fmt.Errorf("failed to load source account %s: %w", from, err)
		}
		target, err := ledger.AccountIn(cmd.Context(), currency, to)
		if err != nil {
			return fmt.Errorf("failed to load target account %s: %w", to, err)
		}

		tx, err := ledger.Transfer().
			From(source).
			To(target).
			Amount(amount).
			MessageFunc(shared.ResultSuccess, func() string {
				return fmt.Sprintf("Transfer successful. Balances: %s / %s",
					currency.Format(source.Balance()), currency.Format(target.Balance()))
			}).
			Message(shared.ResultNotEnoughFunds, "The source account has insufficient funds.").
			Message(shared.ResultNoRemainingSpace, "The target account cannot hold that much.").
			Build(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Transfer of %s from '%s' to '%s': %s\n", currency.Format(amount), from, to, tx.Result)
		tx.Inform(stdoutRecipient{})
		if tx.Err != nil {
			fmt.Printf("  Details: %v\n", tx.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transactionCmd)

	for _, c := range []*cobra.Command{depositCmd, withdrawCmd, setCmd, resetCmd} {
		transactionCmd.AddCommand(c)
		c.Flags().StringVar(&txAccountID, "id", "", "Owner UUID of the account (required)")
		_ = c.MarkFlagRequired("id")
		if c != resetCmd {
			c.Flags().StringVar(&txAmountStr, "amount", "", "Amount (required)")
			_ = c.MarkFlagRequired("amount")
		}
	}

	transactionCmd.AddCommand(transferCmd)
	transferCmd.Flags().StringVar(&txFromID, "from", "", "Owner UUID of the source account (required)")
	transferCmd.Flags().StringVar(&txToID, "to", "", "Owner UUID of the target account (required)")
	transferCmd.Flags().StringVar(&txAmountStr, "amount", "", "Amount to transfer (required)")
	_ = transferCmd.MarkFlagRequired("from")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("amount")
}
