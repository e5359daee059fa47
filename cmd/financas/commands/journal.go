package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
)

func journalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "Show this year's journal rows of the logged-in user",
		Long: "Reads the spreadsheet journal filled by journal-worker and prints the\n" +
			"rows recorded for the logged-in user during the current year.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := a.stores.Sessions.CurrentUser()
			if !ok {
				return core.ErrNoSession
			}
			reader, err := a.openJournal(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			entries, err := reader.List(cmd.Context(), u.ID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				amount := ""
				if !e.Amount.IsZero() {
					amount = a.money(e.Amount)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Event, e.EntityID, amount, e.Category, e.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			a.printf("%d journal row(s)\n", len(entries))
			return nil
		},
	}
}

func openGoogleJournal(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.JournalReader, error) {
	if err := cfg.ValidateJournal(); err != nil {
		return nil, err
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		JournalSheet:    cfg.GoogleJournalSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, gsheet.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return client, nil
}
