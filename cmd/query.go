package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"economy-ledger/app"
	"economy-ledger/domain"
	"economy-ledger/events"
	"economy-ledger/store"
)

// Variables to hold flag values for query commands
var (
	queryAccountID string
	queryLimit     int
	querySkip      int
)

// queryCmd represents the query command group
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query account information",
	Long:  `Provides commands to query account balances, list accounts and view transaction history.`,
}

// balanceCmd represents the balance query command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Get the balance of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner("id", queryAccountID)
		if err != nil {
			return err
		}
		currency, err := selectedCurrency()
		if err != nil {
			return err
		}

		balance, err := ledger.GetBalance(cmd.Context(), app.GetBalanceQuery{Currency: currency.Key(), Owner: owner})
		if errors.Is(err, domain.ErrAccountNotFound) {
			fmt.Printf("Account '%s' has no %s account.\n", owner, currency.Key())
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		fmt.Printf("Account '%s' Balance (%s): %s\n", owner, currency.Key(), currency.Format(balance))
		return nil
	},
}

// accountsCmd lists every account, grouped by currency
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts grouped by currency",
	RunE: func(cmd *cobra.Command, args []string) error {
		grouped, err := ledger.Accounts(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, currency := range ledger.Currencies().Registered() {
			accounts := grouped[currency]
			fmt.Printf("%s (%d accounts)\n", currency.Key(), len(accounts))
			for _, account := range accounts {
				suffix := ""
				if account.Virtual() {
					suffix = " [virtual]"
				}
				fmt.Printf("  %s: %s%s\n", account.Owner(), currency.Format(account.Balance()), suffix)
			}
		}
		return nil
	},
}

// historyCmd represents the history query command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Get the transaction history of an account",
	Long: `Shows the completed transactions and transfers of an account, oldest first.
History is kept in memory for the lifetime of the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner("id", queryAccountID)
		if err != nil {
			return err
		}
		currency, err := selectedCurrency()
		if err != nil {
			return err
		}

		entries, err := ledger.History(cmd.Context(), app.GetHistoryQuery{
			Currency: currency.Key(),
			Owner:    owner,
			Limit:    queryLimit,
			Skip:     querySkip,
		})
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}
		if len(entries) == 0 {
			fmt.Printf("No transaction history found for account '%s'.\n", owner)
			return nil
		}

		fmt.Printf("Transaction History for Account '%s' (%s):\n", owner, currency.Key())
		fmt.Println("--------------------------------------------------")
		for _, entry := range entries {
			printEntry(entry)
			fmt.Println("--------------------------------------------------")
		}
		return nil
	},
}

func printEntry(entry store.JournalEntry) {
	base := entry.Event.GetBase()
	fmt.Printf("Entry %d:\n", entry.Version)
	fmt.Printf("  Type:      %s\n", base.Type)
	fmt.Printf("  EventID:   %s\n", base.EventID.String())
	fmt.Printf("  Timestamp: %s\n", base.Timestamp.Format(time.RFC3339))

	switch e := entry.Event.(type) {
	case events.TransactionPost:
		fmt.Println("  Details:")
		fmt.Printf("    Kind:     %s\n", e.Transaction.Type)
		fmt.Printf("    Amount:   %s\n", e.Currency().Format(e.Transaction.Amount))
	case events.TransferPost:
		fmt.Println("  Details:")
		fmt.Printf("    From:     %s\n", e.From().Owner())
		fmt.Printf("    To:       %s\n", e.To().Owner())
		fmt.Printf("    Amount:   %s\n", e.Currency().Format(e.Transaction.Amount))
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(balanceCmd)
	queryCmd.AddCommand(accountsCmd)
	queryCmd.AddCommand(historyCmd)

	balanceCmd.Flags().StringVar(&queryAccountID, "id", "", "Owner UUID of the account to query (required)")
	_ = balanceCmd.MarkFlagRequired("id")

	historyCmd.Flags().StringVar(&queryAccountID, "id", "", "Owner UUID of the account to query (required)")
	historyCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum number of entries to show (0 for all)")
	historyCmd.Flags().IntVar(&querySkip, "skip", 0, "Number of entries to skip")
	_ = historyCmd.MarkFlagRequired("id")
}
