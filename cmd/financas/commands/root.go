package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	stores *cli.Stores

	out    io.Writer
	errOut io.Writer

	backendFlag  string
	dbFlag       string
	currencyFlag string

	// openJournal connects to the event journal for the journal command.
	openJournal func(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.JournalReader, error)
}

func Execute() error {
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

// NewRootCmd builds the command tree writing results to out and logs and
// errors to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	return newRootCmd(&app{out: out, errOut: errOut, openJournal: openGoogleJournal})
}

func newRootCmd(a *app) *cobra.Command {

	root := &cobra.Command{
		Use:          "financas",
		Short:        "Personal finance ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.backendFlag, "backend", "", "storage backend: sqlite or memory (default from DATA_BACKEND)")
	root.PersistentFlags().StringVar(&a.dbFlag, "db", "", "SQLite database path (default from SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&a.currencyFlag, "currency", "", "ISO currency for amounts (default from CURRENCY)")

	root.AddCommand(
		registerCmd(a), loginCmd(a), logoutCmd(a), whoamiCmd(a), usersCmd(a), profileCmd(a),
		txCmd(a), categoryCmd(a), balanceCmd(a), journalCmd(a),
	)

	a.wrapErrors(root)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()

	cfg := config.Load()
	if a.backendFlag != "" {
		cfg.DataBackend = a.backendFlag
	}
	if a.dbFlag != "" {
		cfg.SQLiteDBPath = a.dbFlag
	}
	if a.currencyFlag != "" {
		cfg.Currency = a.currencyFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg, a.errOut).WithComponent(log.ComponentCLI)

	stores, err := cli.OpenStores(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	a.stores = stores
	return nil
}

func (a *app) close() error {
	if a.stores == nil {
		return nil
	}
	err := a.stores.Cleanup()
	a.stores = nil
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// wrapErrors replaces store errors with messages meant for the terminal on
// every runnable command. PersistentPostRunE is skipped when RunE fails, so
// the stores are closed here in that case.
func (a *app) wrapErrors(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			if err := run(c, args); err != nil {
				_ = a.close()
				return userError(err)
			}
			return nil
		}
	}
	for _, sub := range cmd.Commands() {
		a.wrapErrors(sub)
	}
}

func userError(err error) error {
	switch {
	case errors.Is(err, core.ErrNoSession):
		return errors.New("not logged in: run 'financas login' first")
	case errors.Is(err, core.ErrInvalidCredentials):
		return errors.New("invalid email or password")
	case errors.Is(err, core.ErrDuplicateEmail):
		return errors.New("this email is already registered")
	case errors.Is(err, core.ErrNotFound):
		return errors.New("user not found")
	default:
		return err
	}
}
