package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var raw bool

	cmd := &cobra.Command{
		Use:   "preview <jobId>",
		Short: "Show the CSV rendition of a finished conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.convertClient()
			if err != nil {
				return err
			}
			body, err := client.FetchCSV(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err := io.WriteString(out, body)
				return err
			}
			headers, rows, err := parseCSV(body)
			if err != nil {
				return err
			}
			if len(headers) == 0 {
				fmt.Fprintln(out, "Result is empty")
				return nil
			}
			total := len(rows)
			if limit > 0 && total > limit {
				rows = rows[:limit]
			}
			fmt.Fprintln(out, renderTable(headers, rows, nil))
			if len(rows) < total {
				fmt.Fprintf(out, "%d of %d rows shown\n", len(rows), total)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the CSV text unchanged")
	return cmd
}

// parseCSV splits body into a header row and data rows. Ragged rows are
// allowed.
func parseCSV(body string) ([]string, [][]string, error) {
	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}
