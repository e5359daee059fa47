package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"financas/internal/core"
)

func txCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}
	cmd.AddCommand(txAddCmd(a), txUpdateCmd(a), txDeleteCmd(a), txListCmd(a), txPeriodCmd(a))
	return cmd
}

// txFlags holds the transaction fields accepted as flags by add and update.
type txFlags struct {
	typ, amount, description, category, date string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "income or expense")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "positive amount, e.g. 12.50 or 12,50")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description (max 200 characters)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category name")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
}

func txAddCmd(a *app) *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(f.amount)
			if err != nil {
				return err
			}
			date := core.Today()
			if f.date != "" {
				if date, err = core.ParseDate(f.date); err != nil {
					return err
				}
			}
			t, err := a.stores.Ledger.AddTransaction(cmd.Context(), core.Transaction{
				Type:        core.TransactionType(f.typ),
				Amount:      amount,
				Description: f.description,
				Category:    f.category,
				Date:        date,
			})
			if err != nil {
				return err
			}
			a.printf("Added %s %s (%s)\n", t.Type, a.money(t.Amount), t.ID)
			return nil
		},
	}
	f.register(cmd)
	for _, name := range []string{"type", "amount", "description", "category"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func txUpdateCmd(a *app) *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}
			t, found, err := a.stores.Ledger.UpdateTransaction(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if !found {
				a.printf("No transaction with id %s\n", args[0])
				return nil
			}
			a.printf("Updated %s: %s %s\n", t.ID, t.Description, a.money(t.Amount))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// patch builds a TransactionPatch from the flags set on the command line.
func (f *txFlags) patch(cmd *cobra.Command) (core.TransactionPatch, error) {
	var p core.TransactionPatch
	changed := cmd.Flags().Changed
	if changed("type") {
		typ := core.TransactionType(f.typ)
		p.Type = &typ
	}
	if changed("amount") {
		amount, err := core.ParseAmount(f.amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("category") {
		p.Category = &f.category
	}
	if changed("date") {
		date, err := core.ParseDate(f.date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	if p.IsEmpty() {
		return p, fmt.Errorf("nothing to update: pass at least one of --type, --amount, --description, --category, --date")
	}
	return p, nil
}

func txDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.stores.Ledger.DeleteTransaction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				a.printf("No transaction with id %s\n", args[0])
				return nil
			}
			a.printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func txListCmd(a *app) *cobra.Command {
	var typ, term string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := a.stores.Ledger.Search(cmd.Context(), core.TransactionFilter{
				Type: core.TransactionType(typ),
				Term: term,
			})
			if err != nil {
				return err
			}
			a.writeTransactions(a.out, txs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "all", "all, income or expense")
	cmd.Flags().StringVarP(&term, "search", "s", "", "match description or category")
	return cmd
}

func txPeriodCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "period <start> <end>",
		Short: "List transactions dated between start and end, inclusive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := core.ParseDate(args[0])
			if err != nil {
				return err
			}
			end, err := core.ParseDate(args[1])
			if err != nil {
				return err
			}
			seq, err := a.stores.Ledger.TransactionsByPeriod(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			var txs []core.Transaction
			for t := range seq {
				txs = append(txs, t)
			}
			a.writeTransactions(a.out, txs)
			a.printf("%d transaction(s) between %s and %s\n", len(txs), start, end)
			return nil
		},
	}
}

func categoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cmd.AddCommand(categoryAddCmd(a), categoryListCmd(a))
	return cmd
}

func categoryAddCmd(a *app) *cobra.Command {
	var typ, color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.stores.Ledger.AddCategory(cmd.Context(), core.Category{
				Name:  args[0],
				Type:  core.TransactionType(typ),
				Color: color,
			})
			if err != nil {
				return err
			}
			a.printf("Added %s category %s (%s)\n", c.Type, c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "income or expense")
	cmd.Flags().StringVar(&color, "color", "", "display color as #RRGGBB")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func categoryListCmd(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cats []core.Category
				err  error
			)
			if typ == "" || typ == "all" {
				cats, err = a.stores.Ledger.Categories(cmd.Context())
			} else {
				cats, err = a.stores.Ledger.CategoriesByType(cmd.Context(), core.TransactionType(typ))
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			defer tw.Flush()
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Name, c.Color)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "all", "all, income or expense")
	return cmd
}

func balanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show income, expense and total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.stores.Ledger.Balance(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			defer tw.Flush()
			fmt.Fprintf(tw, "Income\t%s\t\n", a.money(b.Income))
			fmt.Fprintf(tw, "Expense\t%s\t\n", a.money(b.Expense))
			fmt.Fprintf(tw, "Total\t%s\t\n", a.money(b.Total))
			return nil
		},
	}
}

func (a *app) money(d decimal.Decimal) string {
	return core.FormatAmount(d, a.cfg.Currency)
}

func (a *app) writeTransactions(w io.Writer, txs []core.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, t := range txs {
		amount := a.money(t.Amount)
		if t.Type == core.Expense {
			amount = "-" + amount
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Date, amount, t.Category, t.Description, t.ID)
	}
}
