package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"economy-ledger/app"
	"economy-ledger/config"
	"economy-ledger/logging"
	"economy-ledger/metrics"
)

var (
	// Shared ledger instance, built once per process.
	ledger    *app.Ledger
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	closer    func() error

	currencyKey string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledger-cli",
	Short: "A CLI for interacting with the economy ledger",
	Long: `ledger-cli is a command-line interface to manage accounts and balances
in the economy ledger.

It allows creating and deleting accounts, setting, depositing, withdrawing and
resetting balances, transferring funds between accounts, and querying balances
and history. Storage, currencies and logging are configured through LEDGER_*
environment variables or a .env file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return boot(cmd.Context())
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if closer != nil {
		if cerr := closer(); cerr != nil {
			printError(fmt.Errorf("failed to close storage: %w", cerr))
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&currencyKey, "currency", "c", "", "Currency key (defaults to the primary currency)")

	rootCmd.AddCommand(replCmd)
}

// boot wires configuration, logging, metrics and storage into the shared ledger.
func boot(ctx context.Context) error {
	if ledger != nil {
		return nil
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	log, _, err := logging.New(loaded.LogLevel)
	if err != nil {
		return err
	}

	currencies := app.NewCurrencyRegistry(log.Named("currencies"))
	definitions, err := loaded.Currencies()
	if err != nil {
		return err
	}
	for _, definition := range definitions {
		currency, err := definition.Build()
		if err != nil {
			return err
		}
		if !currencies.Register(currency) {
			return fmt.Errorf("currency %s was rejected: duplicate key or second primary", currency.Key())
		}
	}
	if _, err := currencies.Primary(); err != nil {
		return err
	}

	overrides, err := loaded.ParsedResetOverrides()
	if err != nil {
		return err
	}
	stats, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	suggestions := app.NewSuggestions()
	if err := suggestions.Suggest(string(config.StorageMemory), memoryFactory(), 0); err != nil {
		return err
	}
	if loaded.Storage != config.StorageMemory {
		if err := suggestions.Suggest(string(loaded.Storage), backendFactory(ctx, loaded), 10); err != nil {
			return err
		}
	}
	backend, persistence, release, err := suggestions.Resolve()
	if err != nil {
		return err
	}
	log.Info("storage selected", zap.String("backend", backend))

	built, err := app.NewLedger(app.LedgerOptions{
		Currencies:  currencies,
		Persistence: persistence,
		Engine: app.EngineOptions{
			LockTimeout:    loaded.LockTimeout,
			ResetOverrides: overrides,
			Recorder:       stats,
		},
		Logger: log,
	})
	if err != nil {
		_ = release()
		return err
	}
	ledger, cfg, logger, collector, closer = built, loaded, log, stats, release
	return nil
}

// printError reports err on stderr. The REPL keeps going after it.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// resetFlags puts every flag back to its default so REPL commands do not
// inherit values from the previous line.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive REPL session",
	Long: `Starts an interactive Read-Eval-Print Loop session to interact with the ledger.
State lives for the whole session, which makes it the natural way to use the
in-memory storage. When LEDGER_METRICS_ADDR is set, /metrics is served for the
duration of the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MetricsAddr != "" {
			server := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics listener stopped", zap.Error(err))
				}
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(ctx)
			}()
			fmt.Printf("Serving metrics on %s/metrics\n", cfg.MetricsAddr)
		}

		fmt.Println("Starting ledger CLI REPL. Type 'exit' or 'quit' to exit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "exit" || input == "quit" {
				break
			}
			if input == "" {
				continue
			}

			commandArgs := strings.Fields(input)
			if commandArgs[0] == "repl" {
				fmt.Println("Already in a REPL session.")
				continue
			}
			resetFlags(rootCmd)
			rootCmd.SetArgs(commandArgs)
			if err := rootCmd.ExecuteContext(cmd.Context()); err != nil {
				printError(err)
			}
		}

		fmt.Println("Exiting REPL.")
		return nil
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	return mux
}
