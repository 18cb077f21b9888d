package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"email-reminder/config"
	"email-reminder/ledger"
	"email-reminder/logger"
	"email-reminder/mailer"
	"email-reminder/reminder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// app holds what every command needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *zap.Logger
	mgr *ledger.LedgerManager
}

func newRootCmd(a *app) *cobra.Command {
	var (
		envFile  string
		dbPath   string
		logLevel string
	)

	root := &cobra.Command{
		Use:          "email-reminder",
		Short:        "Keep track of lent books and remind borrowers when they are overdue",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(envFile, dbPath, logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := newMenu(cmd.InOrStdin(), cmd.OutOrStdout(), a.mgr, a.sendReminders)
			return m.run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to .env file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite ledger (overrides LEDGER_DB)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	root.AddCommand(newRemindCmd(a), newListCmd(a))
	return root
}

func newRemindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Email every borrower whose hiring is overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outcomes, err := a.sendReminders(cmd.Context())
			if err != nil {
				return err
			}
			printOutcomes(cmd.OutOrStdout(), outcomes)
			if s := reminder.Summarize(outcomes); s.Failed > 0 {
				return errors.Errorf("%d reminder(s) failed", s.Failed)
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "Print books, users, hirings or overdue hirings",
	}
	list.AddCommand(
		&cobra.Command{
			Use:  "books",
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printBooks(cmd.Context(), cmd.OutOrStdout(), a.mgr)
			},
		},
		&cobra.Command{
			Use:  "users",
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printUsers(cmd.Context(), cmd.OutOrStdout(), a.mgr)
			},
		},
		&cobra.Command{
			Use:  "hirings",
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printHirings(cmd.Context(), cmd.OutOrStdout(), a.mgr)
			},
		},
		&cobra.Command{
			Use:   "overdue",
			Short: "Print only hirings past their due date",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printOverdue(cmd.Context(), cmd.OutOrStdout(), a.mgr)
			},
		},
	)
	return list
}

func (a *app) open(envFile, dbPath, logLevel string) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return errors.Wrapf(err, "load %s", envFile)
	}
	opts := []config.Option{config.WithDatabasePath(dbPath)}
	if logLevel != "" {
		lvl, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		opts = append(opts, config.WithLogLevel(lvl))
	}
	cfg, err := config.NewConfig(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewLogger(cfg.Log, "email-reminder")

	mgr, err := ledger.NewLedgerManager(cfg.DatabasePath, ledger.WithLogger(a.log))
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.mgr == nil {
		return nil
	}
	return a.mgr.Close()
}

// sendReminders builds the SMTP dispatcher lazily so that browsing the
// ledger works without mail settings.
func (a *app) sendReminders(ctx context.Context) ([]reminder.Outcome, error) {
	if err := a.cfg.CanSend(); err != nil {
		return nil, err
	}
	if a.cfg.SMTP.Password == "" && term.IsTerminal(int(syscall.Stdin)) {
		password, err := readPassword(fmt.Sprintf("SMTP password for %s: ", a.cfg.SMTP.Username))
		if err != nil {
			return nil, errors.Wrap(err, "read password")
		}
		config.WithSMTPPassword(password)(a.cfg)
	}
	d := reminder.NewDispatcher(mailer.New(a.cfg.SMTP, a.log), a.cfg.ReminderSender(), a.log)
	return d.SendReminders(ctx, a.mgr.Database())
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func printOutcomes(w io.Writer, outcomes []reminder.Outcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No overdue hirings.")
		return
	}
	for _, o := range outcomes {
		switch o.Status {
		case reminder.StatusSent:
			fmt.Fprintf(w, "Reminder sent to: %s\n", o.Hiring.User)
		case reminder.StatusSkippedInvalidEmail:
			fmt.Fprintf(w, "Could not email %s - invalid email address!\n", o.Hiring.User)
		default:
			fmt.Fprintf(w, "Sending to %s failed: %v\n", o.Hiring.User, o.Err)
		}
	}
	s := reminder.Summarize(outcomes)
	fmt.Fprintf(w, "\nSent: %d | Invalid address: %d | Failed: %d\n", s.Sent, s.Skipped, s.Failed)
}
