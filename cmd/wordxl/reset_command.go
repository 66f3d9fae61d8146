package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <jobId>",
		Short: "Discard a conversion job on the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.convertClient()
			if err != nil {
				return err
			}
			jobID := strings.TrimSpace(args[0])
			if err := client.ResetJob(cmd.Context(), jobID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s reset\n", jobID)
			return nil
		},
	}
}
