package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask the daemon to scan the seedbox now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.callAPI(http.MethodPost, "/api/sync", nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync requested")
			return nil
		},
	}
}
