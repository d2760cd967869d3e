package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ListingFlow/internal/app"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <contentId>",
		Short: "Print the persisted audit trail of a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.ensureConfig()
			repo, err := app.OpenStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if repo == nil {
				return errors.New("no database configured (set database.dsn or DATABASE_DSN)")
			}
			defer repo.Close()

			entries, err := repo.LoadHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No history for %s\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				transition := string(e.ToStatus)
				if e.FromStatus != "" && e.FromStatus != e.ToStatus {
					transition = string(e.FromStatus) + " -> " + string(e.ToStatus)
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.Seq, 10),
					e.Timestamp.UTC().Format(time.RFC3339),
					e.ActorID,
					e.Action,
					transition,
					e.Comment,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Seq", "Time", "Actor", "Action", "Status", "Comment"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}
