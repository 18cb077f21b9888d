package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"email-reminder/config"
	"email-reminder/ledger"
	"email-reminder/logger"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var (
		envFile string
		dbPath  string
	)
	cmd := &cobra.Command{
		Use:          "import_books <books.csv>",
		Short:        "Import \"title,author\" rows into the ledger",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.NewConfig(config.WithDatabasePath(dbPath))
			if err != nil {
				return err
			}
			log := logger.NewLogger(cfg.Log, "import_books")
			defer log.Sync()

			manager, err := ledger.NewLedgerManager(cfg.DatabasePath, ledger.WithLogger(log))
			if err != nil {
				return err
			}
			defer manager.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing books from %s...\n", args[0])
			report, err := manager.AddBooksFromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range report.Errors {
				fmt.Fprintf(out, "ERROR - %v\n", e)
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", report.Added)
			fmt.Fprintf(out, "Already present: %d\n", report.Skipped)
			fmt.Fprintf(out, "Errors: %d\n", len(report.Errors))

			if report.Added == 0 {
				return nil
			}
			books, err := manager.GetAllBooks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nBooks in the ledger:")
			fmt.Fprintf(out, "%-5s %-30s %-25s\n", "ID", "Title", "Author")
			fmt.Fprintln(out, strings.Repeat("-", 62))
			for _, b := range books {
				fmt.Fprintln(out, ledger.PrettyBook(b))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to .env file")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite ledger (overrides LEDGER_DB)")
	return cmd
}
