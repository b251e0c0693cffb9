package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/preflight"
)

type statusReport struct {
	ConfigPath string                 `json:"configPath"`
	Ready      bool                   `json:"ready"`
	Checks     []api.CheckView        `json:"checks"`
	Deps       []api.DependencyStatus `json:"dependencies"`
	History    *historyTotals         `json:"history,omitempty"`
}

type historyTotals struct {
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	TotalDuration float64 `json:"totalDuration"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show readiness checks and render history totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := preflight.BuildReport(commandCtx(cmd), cfg)
			checks, dependencies := api.FromReport(report)
			status := statusReport{
				ConfigPath: ctx.configPath,
				Ready:      report.Ready(),
				Checks:     checks,
				Deps:       dependencies,
			}
			if store, err := ctx.openHistory(); err == nil {
				if summary, err := store.Summarize(commandCtx(cmd)); err == nil {
					status.History = &historyTotals{
						Total:         summary.Total,
						Succeeded:     summary.Succeeded,
						Failed:        summary.Failed,
						TotalDuration: summary.TotalDuration,
					}
				}
				store.Close()
			}

			if jsonOutput {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(statusLines(status, shouldColorize(out)), "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func statusLines(status statusReport, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("System", colorize)...)
	readyKind, readyText := statusOK, "Ready"
	if !status.Ready {
		readyKind, readyText = statusError, "Not ready"
	}
	lines = append(lines, renderStatusLine("reelforge", readyKind, readyText, colorize))
	if status.ConfigPath != "" {
		lines = append(lines, renderStatusLine("Config", statusInfo, status.ConfigPath, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range status.Checks {
		lines = append(lines, renderStatusLine(check.Name, checkKind(check.Passed), check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range status.Deps {
		message := dep.Command
		switch {
		case !dep.Available && dep.Detail != "":
			message = dep.Detail
		case dep.Path != "":
			message = dep.Path
		}
		lines = append(lines, renderStatusLine(dep.Name, dependencyKind(dep.Available, dep.Optional), message, colorize))
	}

	if status.History != nil {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("History", colorize)...)
		lines = append(lines, renderStatusLine("Renders", statusInfo,
			fmt.Sprintf("%d total, %d succeeded, %d failed", status.History.Total, status.History.Succeeded, status.History.Failed), colorize))
		lines = append(lines, renderStatusLine("Rendered time", statusInfo,
			fmt.Sprintf("%.1fs", status.History.TotalDuration), colorize))
	}
	return lines
}
