package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wordxl/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the wordxl log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if filter.Match(line) {
					fmt.Fprintln(out, line)
				}
			}

			// Over-read so filtering still leaves roughly the requested count.
			window := lines
			if filter != (logs.Filter{}) && window > 0 {
				window *= 10
			}
			tail, offset, err := logs.Last(path, window)
			if err != nil {
				return err
			}
			matched := make([]string, 0, len(tail))
			for _, line := range tail {
				if filter.Match(line) {
					matched = append(matched, line)
				}
			}
			if lines > 0 && len(matched) > lines {
				matched = matched[len(matched)-lines:]
			}
			for _, line := range matched {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(matched) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No matching log lines in %s\n", path)
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only lines from this component (session, convertapi, auth, ...)")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&filter.JobID, "job", "", "Only lines for this job id")
	return cmd
}
