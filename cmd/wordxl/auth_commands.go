package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wordxl/internal/auth"
)

const passwordEnv = "WORDXL_PASSWORD"

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the signed-in session",
	}
	authCmd.AddCommand(newAuthLoginCommand(ctx))
	authCmd.AddCommand(newAuthLogoutCommand(ctx))
	authCmd.AddCommand(newAuthWhoamiCommand(ctx))
	return authCmd
}

func newAuthLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in and cache the session cookie.

The password comes from --password, then $WORDXL_PASSWORD, then the first
line of standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.authClient()
			if err != nil {
				return err
			}
			secret := password
			if secret == "" {
				secret = os.Getenv(passwordEnv)
			}
			if secret == "" {
				if secret, err = readLine(cmd); err != nil {
					return err
				}
			}
			user, err := client.Login(cmd.Context(), email, secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prefer $"+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readLine(cmd *cobra.Command) (string, error) {
	if isTerminal(cmd.InOrStdin()) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}

func newAuthLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear the cached identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.authClient()
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

type whoamiView struct {
	Authenticated bool       `json:"authenticated"`
	Verified      bool       `json:"verified"`
	User          *auth.User `json:"user,omitempty"`
}

func newAuthWhoamiCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Verify the session and show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.authClient()
			if err != nil {
				return err
			}
			id, err := client.Check(cmd.Context())
			if err != nil && !errors.Is(err, auth.ErrNotAuthenticated) {
				return err
			}
			view := whoamiView{}
			if err == nil {
				user := id.User
				view = whoamiView{Authenticated: true, Verified: id.Verified, User: &user}
			}
			if jsonOutput {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if !view.Authenticated {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}
			fmt.Fprintf(out, "User:     %s\n", view.User.DisplayName())
			if view.User.Email != "" {
				fmt.Fprintf(out, "Email:    %s\n", view.User.Email)
			}
			fmt.Fprintf(out, "Verified: %s\n", yesNo(view.Verified))
			if !view.Verified {
				fmt.Fprintln(out, "The auth backend could not be reached; showing the cached identity.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
