package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aigencia/apiclient/client"
)

const cookieOnlyNotice = "Warning: the server returned a cookie-only session; it is not kept after this command exits."

func (a *cli) newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session tokens",
		Long: `Authenticate and store the session tokens.

Tokens returned in the response body are saved to the token store and reused
by later invocations. Cookies live only for the current invocation: when the
server authenticates through cookies alone, the session does not carry over
to the next command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("AIGENCIA_PASSWORD")
			}
			if password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(b)
			}
			c, err := a.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			resp, err := c.Login(ctx, client.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			if at, _ := c.Tokens().AccessToken(); at == client.CookieSessionToken {
				fmt.Fprintln(cmd.ErrOrStderr(), cookieOnlyNotice)
			}
			who := email
			if resp.User != nil && resp.User.Name != "" {
				who = resp.User.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", who)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (default $AIGENCIA_PASSWORD, else prompt)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			if err := c.Logout(ctx); err != nil {
				// Local tokens are gone either way.
				fmt.Fprintf(cmd.ErrOrStderr(), "server logout failed: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *cli) newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			u, err := c.Me(ctx)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(u)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func (a *cli) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or renew stored credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which tokens are stored and whether they are expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := cmd.OutOrStdout()
			tm := c.Tokens()
			at, ok := tm.AccessToken()
			fmt.Fprintf(out, "access:  %s\n", describeToken(tm, at, ok))
			rt, ok := tm.RefreshToken()
			fmt.Fprintf(out, "refresh: %s\n", describeToken(tm, rt, ok))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			tok, err := c.Refresh(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access:  %s\n", describeToken(c.Tokens(), tok, true))
			return nil
		},
	})
	return cmd
}

func describeToken(tm *client.TokenManager, tok string, ok bool) string {
	switch {
	case !ok:
		return "absent"
	case tok == client.CookieSessionToken:
		return "cookie session"
	case tm.IsExpired(tok):
		return "expired"
	}
	if exp, ok := tm.ExpiresAt(tok); ok {
		return fmt.Sprintf("valid until %s", exp.Format(time.RFC3339))
	}
	return "valid"
}
