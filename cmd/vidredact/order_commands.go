package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidredact/internal/api"
	"vidredact/internal/jobs"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var all bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List work orders waiting for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				var statuses []jobs.Status
				if !all {
					statuses = []jobs.Status{jobs.StatusPending}
				}
				orders, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				sortOrdersNumeric(orders)

				if asJSON {
					if all {
						views := make([]api.OrderStatus, 0, len(orders))
						for _, order := range orders {
							views = append(views, api.FromWorkOrder(order))
						}
						return writeJSON(cmd, views)
					}
					ids := make([]string, 0, len(orders))
					for _, order := range orders {
						ids = append(ids, order.WorkID)
					}
					return writeJSON(cmd, api.PendingResponse{PendingJobs: ids})
				}

				out := cmd.OutOrStdout()
				if len(orders) == 0 {
					fmt.Fprintln(out, "No pending work orders")
					return nil
				}
				rows := make([][]string, 0, len(orders))
				for _, order := range orders {
					rows = append(rows, []string{
						order.WorkID,
						order.Status.String(),
						order.DisplayName,
						strconv.FormatFloat(order.ConfidenceThreshold, 'f', -1, 64),
						strconv.Itoa(order.MosaicStrength),
						formatTimestamp(order.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Work ID", "Status", "Name", "Threshold", "Strength", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					shouldColorize(out),
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&all, "all", false, "Include orders in every state")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <work_id>",
		Short: "Show one work order and its per-class durations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workID := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *jobs.Store) error {
				order, err := store.Get(cmd.Context(), workID)
				if errors.Is(err, jobs.ErrNotFound) {
					return fmt.Errorf("work order %s not found", workID)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.FromWorkOrder(order))
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				printLines(out, renderSectionHeader("Work order "+order.WorkID, colorize)...)
				printLines(out,
					renderStatusLine("Status", statusKindFor(order.Status), order.Status.String(), colorize),
					renderStatusLine("Display name", statusInfo, order.DisplayName, colorize),
					renderStatusLine("Source", statusInfo, order.SourcePath, colorize),
					renderStatusLine("Confidence threshold", statusInfo, strconv.FormatFloat(order.ConfidenceThreshold, 'f', -1, 64), colorize),
					renderStatusLine("Mosaic strength", statusInfo, strconv.Itoa(order.MosaicStrength), colorize),
					renderStatusLine("Created", statusInfo, formatTimestamp(order.CreatedAt), colorize),
					renderStatusLine("Started", statusInfo, formatOptionalTime(order.StartedAt), colorize),
					renderStatusLine("Finished", statusInfo, formatOptionalTime(order.FinishedAt), colorize),
				)
				if elapsed := order.Elapsed(); elapsed > 0 {
					printLines(out, renderStatusLine("Elapsed", statusInfo, elapsed.Round(time.Millisecond).String(), colorize))
				}
				if order.ResultURL != "" {
					printLines(out, renderStatusLine("Result", statusOK, order.ResultURL, colorize))
				}
				if order.Error != "" {
					printLines(out, renderStatusLine("Error", statusError, order.Error, colorize))
				}
				if order.Status != jobs.StatusDone {
					return nil
				}

				durations := order.Durations.Normalized()
				rows := make([][]string, 0, len(jobs.Classes))
				for _, class := range jobs.Classes {
					rows = append(rows, []string{classLabel(class), formatSeconds(durations[class])})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Class", "Seconds"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
					colorize,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

func sortOrdersNumeric(orders []*jobs.WorkOrder) {
	ids := make([]string, 0, len(orders))
	byID := make(map[string]*jobs.WorkOrder, len(orders))
	for _, order := range orders {
		ids = append(ids, order.WorkID)
		byID[order.WorkID] = order
	}
	jobs.SortIDsNumeric(ids)
	for i, id := range ids {
		orders[i] = byID[id]
	}
}
