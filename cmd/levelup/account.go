// ABOUTME: Account commands: signup, login, logout, reset-password and activity
// ABOUTME: Talks to the server's /api/auth endpoints and stores the session locally

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/issambenlahbib/levelupmy-life/internal/auth"
	"github.com/issambenlahbib/levelupmy-life/internal/server"
	"github.com/issambenlahbib/levelupmy-life/internal/store"
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// postJSON sends body to the server and decodes a JSON answer into out,
// which may be nil.
func postJSON(ctx context.Context, o *RootOptions, cfg ClientConfig, path, token string, body, out any) error {
	return doJSON(ctx, o, cfg, http.MethodPost, path, token, body, out)
}

func doJSON(ctx context.Context, o *RootOptions, cfg ClientConfig, method, path, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(cfg.Server, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", cfg.Server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e server.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return &apiError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readSecret returns flagVal or prompts for it on the command's input.
func readSecret(cmd *cobra.Command, flagVal, label string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

func (o *RootOptions) storeSession(cmd *cobra.Command, cfg ClientConfig, sess auth.Session) error {
	cfg.Token = sess.Token
	cfg.UserID = sess.Identity.UserID
	cfg.Email = sess.Identity.Email
	if err := o.save(cfg); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s (%s)\n", sess.Identity.Name, sess.Identity.Email)
	return nil
}

// NewSignUpCommand creates the signup command.
func NewSignUpCommand(o *RootOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			pw, err := readSecret(cmd, password, "Password")
			if err != nil {
				return err
			}
			var sess auth.Session
			req := server.SignUpRequest{Name: name, Email: email, Password: pw}
			if err := postJSON(cmd.Context(), o, cfg, "/api/auth/signup", "", req, &sess); err != nil {
				return fmt.Errorf("sign-up failed: %w", err)
			}
			return o.storeSession(cmd, cfg, sess)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand(o *RootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			pw, err := readSecret(cmd, password, "Password")
			if err != nil {
				return err
			}
			var sess auth.Session
			req := server.SignInRequest{Email: email, Password: pw}
			if err := postJSON(cmd.Context(), o, cfg, "/api/auth/signin", "", req, &sess); err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}
			return o.storeSession(cmd, cfg, sess)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if !cfg.SignedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}

			// A session the server no longer knows is still forgotten locally.
			err = postJSON(cmd.Context(), o, cfg, "/api/auth/signout", cfg.Token, nil, nil)
			var ae *apiError
			if err != nil && !(errors.As(err, &ae) && ae.Status == http.StatusUnauthorized) {
				return fmt.Errorf("sign-out failed: %w", err)
			}

			cfg.Token, cfg.UserID, cfg.Email = "", "", ""
			if err := o.save(cfg); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Signed out")
			return nil
		},
	}
}

// NewResetPasswordCommand creates the reset-password command. Without
// --token it requests a reset email; with --token it sets the new password.
func NewResetPasswordCommand(o *RootOptions) *cobra.Command {
	var email, token, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Request a password reset, or complete one with --token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if token == "" {
				if email == "" {
					return errors.New("--email is required to request a reset")
				}
				if err := postJSON(cmd.Context(), o, cfg, "/api/auth/reset", "", server.ResetRequest{Email: email}, nil); err != nil {
					return fmt.Errorf("reset request failed: %w", err)
				}
				fmt.Fprintln(out, "If an account exists for that address, a reset link is on its way.")
				return nil
			}

			pw, err := readSecret(cmd, password, "New password")
			if err != nil {
				return err
			}
			req := server.ResetConfirmRequest{Token: token, Password: pw}
			if err := postJSON(cmd.Context(), o, cfg, "/api/auth/reset/confirm", "", req, nil); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			color.New(color.FgGreen).Fprintln(out, "✓ Password changed. Sign in again with `levelup login`.")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}

// NewActivityCommand creates the activity command.
func NewActivityCommand(o *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent sign-ins, sign-outs and password resets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if !cfg.SignedIn() {
				return errNotSignedIn
			}
			var entries []store.AuditEntry
			path := fmt.Sprintf("/api/me/activity?limit=%d", limit)
			if err := doJSON(cmd.Context(), o, cfg, http.MethodGet, path, cfg.Token, nil, &entries); err != nil {
				return err
			}
			if o.Format == "json" {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No activity yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tACTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), strings.ReplaceAll(string(e.Action), "_", " "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}
