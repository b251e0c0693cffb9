package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded renders",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, status := range statuses {
				if status != history.StatusSucceeded && status != history.StatusFailed {
					return fmt.Errorf("unknown status %q (use %s or %s)", status, history.StatusSucceeded, history.StatusFailed)
				}
			}
			entries, err := store.List(commandCtx(cmd), limit, statuses...)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.RenderListResponse{Renders: api.FromEntries(entries)})
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (succeeded, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(commandCtx(cmd), args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("render %s not found", args[0])
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromEntry(*entry))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", entry.ID)
			fmt.Fprintf(out, "Status:    %s\n", entry.Status)
			if entry.ErrorClass != "" {
				fmt.Fprintf(out, "Error:     %s: %s\n", entry.ErrorClass, entry.ErrorDetail)
			}
			fmt.Fprintf(out, "Source:    %s\n", entry.Source)
			fmt.Fprintf(out, "Started:   %s\n", entry.StartedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Elapsed:   %s\n", entry.Elapsed().Round(time.Millisecond))
			fmt.Fprintf(out, "Turns:     %d (segments %d, words %d, overlays %d)\n", entry.Turns, entry.Segments, entry.Words, entry.Overlays)
			fmt.Fprintf(out, "Duration:  %.2fs\n", entry.TotalDuration)
			fmt.Fprintf(out, "Video:     %s\n", formatBytes(entry.VideoBytes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := parseAge(olderThan)
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(commandCtx(cmd), time.Now().Add(-age))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "30d", "Age cutoff (Go duration or N followed by d)")
	return cmd
}

// parseAge accepts Go durations plus a whole-day form such as "30d".
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil || age < 0 {
		return 0, fmt.Errorf("invalid age %q", value)
	}
	return age, nil
}

func printHistory(out io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No renders recorded")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		status := entry.Status
		if entry.ErrorClass != "" {
			status = fmt.Sprintf("%s (%s)", entry.Status, entry.ErrorClass)
		}
		rows = append(rows, []string{
			entry.ID,
			entry.StartedAt.Local().Format(time.DateTime),
			status,
			strconv.Itoa(entry.Turns),
			fmt.Sprintf("%.2f", entry.TotalDuration),
			entry.Elapsed().Round(time.Millisecond).String(),
			entry.Source,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Started", "Status", "Turns", "Duration", "Elapsed", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}
