package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"downspout/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and sync engine status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status daemon.Status
			if err := ctx.callAPI(http.MethodGet, "/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			daemonKind := statusError
			daemonMsg := "not running"
			if status.Running {
				daemonKind = statusOK
				daemonMsg = "running"
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, daemonMsg, colorize))

			scanMsg := "idle"
			if status.Sync.Scanning {
				scanMsg = "scanning"
			}
			fmt.Fprintln(out, renderStatusLine("Scan", statusInfo, scanMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Queued", statusInfo, strconv.Itoa(status.Sync.Queued), colorize))
			fmt.Fprintln(out, renderStatusLine("Downloading", statusInfo, strconv.Itoa(status.Sync.Downloading), colorize))
			fmt.Fprintln(out, renderStatusLine("Pending deletes", statusInfo, strconv.Itoa(status.PendingDeletes), colorize))

			if !status.Sync.LastScan.IsZero() {
				fmt.Fprintln(out, renderStatusLine("Last scan", statusInfo, status.Sync.LastScan.Local().Format(time.RFC1123), colorize))
			}
			if status.Sync.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Sync.LastError, colorize))
			}
			return nil
		},
	}
}
