package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"vidredact/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's worker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			held, err := daemonctl.LockHeld(cfg)
			if err != nil {
				return err
			}
			if !held {
				if asJSON {
					return writeJSON(cmd, map[string]any{"running": false})
				}
				printLines(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				return nil
			}

			status, err := daemonctl.FetchStatus(cmd.Context(), cfg)
			if err != nil {
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					printLines(out, renderStatusLine("Daemon", statusWarn, "lock held but API unreachable at "+cfg.Paths.APIBind, colorize))
					return nil
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			printLines(out, renderSectionHeader("Daemon", colorize)...)
			printLines(out,
				renderStatusLine("API", statusOK, cfg.Paths.APIBind, colorize),
				renderStatusLine("Worker running", boolKind(status.WorkerRunning), yesNo(status.WorkerRunning), colorize),
			)
			current := status.CurrentJob
			if current == "" {
				current = "idle"
			}
			printLines(out,
				renderStatusLine("Current order", statusInfo, current, colorize),
				renderStatusLine("Queued", statusInfo, fmt.Sprint(status.Queued), colorize),
				renderStatusLine("Processed this run", statusInfo, fmt.Sprint(status.Processed), colorize),
				renderStatusLine("Failed this run", failedKind(status.Failed), fmt.Sprint(status.Failed), colorize),
			)
			if status.LastError != "" {
				printLines(out, renderStatusLine("Last error", statusError, status.LastError, colorize))
			}
			if len(status.OrderStats) > 0 {
				printLines(out, "")
				printLines(out, renderSectionHeader("Work orders", colorize)...)
				names := make([]string, 0, len(status.OrderStats))
				for name := range status.OrderStats {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					printLines(out, renderStatusLine(name, statusInfo, fmt.Sprint(status.OrderStats[name]), colorize))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status document")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cfg, grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon (pid %d) did not stop within %s and was killed\n", result.PID, grace)
				return nil
			}
			fmt.Fprintf(out, "Daemon (pid %d) stopped\n", result.PID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 30*time.Second, "How long to wait for the in-flight order before killing")
	return cmd
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusWarn
}

func failedKind(count int) statusKind {
	if count > 0 {
		return statusWarn
	}
	return statusOK
}
