package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"downspout/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No transfers recorded")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				size := ""
				if rec.SizeBytes > 0 {
					size = humanize.Bytes(uint64(rec.SizeBytes))
				}
				detail := rec.LocalPath
				if rec.Status == history.StatusFailed {
					detail = rec.Error
				}
				rows = append(rows, []string{
					rec.FinishedAt.Local().Format(time.DateTime),
					string(rec.Status),
					size,
					rec.RemotePath,
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Status", "Size", "Remote", "Local / Error"},
				rows,
				2,
			))

			summary, err := store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d completed, %d failed, %s transferred\n",
				summary.Completed, summary.Failed, humanize.Bytes(uint64(summary.BytesTransferred)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of transfers to show")
	return cmd
}
