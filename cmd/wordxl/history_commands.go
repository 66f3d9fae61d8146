package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wordxl/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past conversion sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []history.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No sessions recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Job", "Status", "Files", "Finished", "Took", "Result"},
					historyRows(entries, time.Now()),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func historyRows(entries []history.Entry, now time.Time) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		job := e.JobID
		if job == "" {
			job = "-"
		}
		outcome := e.ResultPath
		if e.Error != "" {
			outcome = e.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			job,
			e.Status,
			fmt.Sprintf("%d/%d", e.Succeeded, e.FileCount),
			humanize.RelTime(e.FinishedAt, now, "ago", "from now"),
			e.Duration().Round(100 * time.Millisecond).String(),
			outcome,
		})
	}
	return rows
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <jobId>",
		Short: "Show one session and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				jobID := strings.TrimSpace(args[0])
				entry, err := store.Get(cmd.Context(), jobID)
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no session recorded for job %s", jobID)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, entry)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job:      %s\n", entry.JobID)
				fmt.Fprintf(out, "Status:   %s\n", entry.Status)
				fmt.Fprintf(out, "Progress: %d%%\n", entry.Progress)
				fmt.Fprintf(out, "Started:  %s\n", entry.StartedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Took:     %s\n", entry.Duration().Round(100*time.Millisecond))
				if entry.ResultPath != "" {
					fmt.Fprintf(out, "Result:   %s\n", entry.ResultPath)
				}
				if entry.Error != "" {
					fmt.Fprintf(out, "Error:    %s\n", entry.Error)
				}
				rows := make([][]string, 0, len(entry.Files))
				for _, f := range entry.Files {
					rows = append(rows, []string{f.Name, humanize.Bytes(uint64(max(f.Size, 0))), f.Status})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable([]string{"File", "Size", "Status"}, rows,
						[]columnAlignment{alignLeft, alignRight, alignLeft}))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s)\n", removed)
				return nil
			})
		},
	}
}
