// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/souq-assist/internal/session"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// SessionInfo is the JSON form of a saved session. The token is masked.
type SessionInfo struct {
	LoggedIn bool   `json:"loggedIn"`
	UserID   string `json:"userId,omitempty"`
	Token    string `json:"token,omitempty"`
	Path     string `json:"path"`
}

func (a *app) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show or change the identity sent with chat requests",
		Long: `Show or change the identity sent with chat requests.

Signed-in users get consultation booking actions instead of a sign-in
prompt. The token is stored encrypted and bound to this machine.`,
	}
	cmd.AddCommand(a.sessionShowCommand(), a.sessionLoginCommand(), a.sessionLogoutCommand())
	return cmd
}

func (a *app) sessionShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.sessionStore()
			if err != nil {
				return err
			}
			sess, err := store.Load()
			if err != nil {
				a.log.WithError(err).Warn("saved token is unreadable")
			}

			info := SessionInfo{LoggedIn: sess.IsLoggedIn(), UserID: sess.UserID, Path: store.Path()}
			if sess.HasToken() {
				info.Token = session.MaskToken(sess.AuthToken)
			}
			out := cmd.OutOrStdout()
			return printResult(out, a.jsonMode, "session show", info, func() error {
				if !sess.IsLoggedIn() {
					_, err := fmt.Fprintln(out, "Not signed in. Chatting as a guest.")
					return err
				}
				_, err := fmt.Fprintf(out, "Signed in as %s\n", sess.String())
				return err
			})
		},
	}
}

func (a *app) sessionLoginCommand() *cobra.Command {
	var (
		userID     string
		token      string
		tokenStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a user identity and optional token",
		Example: `  souq-assist session login --user 4821
  echo "$SOUQ_TOKEN" | souq-assist session login --user 4821 --token-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return &ValidationError{Field: "user", Reason: "a user ID is required", Example: "--user 4821"}
			}

			switch {
			case tokenStdin:
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return NewValidationError("token", "", "no token on stdin")
				}
				token = line
			case token == "" && IsTTY():
				fmt.Fprint(cmd.ErrOrStderr(), "Token (leave empty for none): ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = string(raw)
			}

			store, err := a.sessionStore()
			if err != nil {
				return err
			}
			sess := session.Context{UserID: userID, AuthToken: strings.TrimSpace(token)}
			if err := store.Save(sess); err != nil {
				return NewCommandError("session", "login", err)
			}
			return printResult(cmd.OutOrStdout(), a.jsonMode, "session login",
				SessionInfo{LoggedIn: true, UserID: userID, Token: maskedOrEmpty(sess), Path: store.Path()},
				func() error {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), styles.RenderInfo("Signed in as "+sess.String()))
					return err
				})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID")
	cmd.Flags().StringVarP(&token, "token", "t", "", "bearer token (prefer --token-stdin)")
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read the token from stdin")
	return cmd
}

func (a *app) sessionLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.sessionStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return NewCommandError("session", "logout", err)
			}
			return printResult(cmd.OutOrStdout(), a.jsonMode, "session logout", SessionInfo{Path: store.Path()}, func() error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return err
			})
		},
	}
}

func maskedOrEmpty(sess session.Context) string {
	if !sess.HasToken() {
		return ""
	}
	return session.MaskToken(sess.AuthToken)
}
