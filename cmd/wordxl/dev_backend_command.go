package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"wordxl/internal/fakebackend"
	"wordxl/internal/logging"
)

func newDevBackendCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var users []string

	cmd := &cobra.Command{
		Use:   "dev-backend",
		Short: "Run a local stand-in conversion and auth service",
		Long: `Serve the conversion and auth endpoints locally for development.

Jobs report progress on a timer set by [dev_backend] step and tick_ms.
Accounts are added with --user email:password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			addr := strings.TrimSpace(bind)
			if addr == "" {
				addr = cfg.DevBackend.Bind
			}
			srv := fakebackend.NewFromConfig(cfg, logger)
			for _, entry := range users {
				email, password, ok := strings.Cut(entry, ":")
				if !ok || strings.TrimSpace(email) == "" || password == "" {
					return fmt.Errorf("invalid --user %q (want email:password)", entry)
				}
				srv.AddUser(fakebackend.User{Email: strings.TrimSpace(email), Username: strings.TrimSpace(email)}, password)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (ctrl+c to stop)\n", ln.Addr())
			logger.Debug("dev backend configured", logging.Int("users", len(users)))
			return srv.Serve(cmd.Context(), ln)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to [dev_backend] bind)")
	cmd.Flags().StringArrayVar(&users, "user", nil, "Add an account as email:password; repeatable")
	return cmd
}
