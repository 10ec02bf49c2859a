// ABOUTME: Root cobra command and flags shared by every levelup subcommand
// ABOUTME: Resolves the client config and builds the HTTP document client

package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
)

var errNotSignedIn = errors.New("not signed in; run `levelup login` first")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Server     string
	Format     string // "text" | "json"
	Timeout    time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the levelup CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "levelup",
		Short:         "levelup - your personal dashboard from the terminal",
		Long:          "Sign in to a levelup server and edit habits, the kanban board and raw documents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", defaultClientConfigPath(), "client config file")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "server URL (overrides the config file)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "per-request timeout")

	cmd.AddCommand(NewSignUpCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewResetPasswordCommand(opts))
	cmd.AddCommand(NewActivityCommand(opts))
	cmd.AddCommand(NewHabitsCommand(opts))
	cmd.AddCommand(NewKanbanCommand(opts))
	cmd.AddCommand(NewDocCommand(opts))

	return cmd
}

// load reads the client config and applies the --server override.
func (o *RootOptions) load() (ClientConfig, error) {
	cfg, err := loadClientConfig(o.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if o.Server != "" {
		cfg.Server = o.Server
	}
	return cfg, nil
}

func (o *RootOptions) save(cfg ClientConfig) error {
	return saveClientConfig(o.ConfigPath, cfg)
}

// documents returns a document client for the signed-in user.
func (o *RootOptions) documents() (ClientConfig, *remote.HTTPClient, error) {
	cfg, err := o.load()
	if err != nil {
		return cfg, nil, err
	}
	if !cfg.SignedIn() {
		return cfg, nil, errNotSignedIn
	}
	client, err := remote.NewHTTPClient(cfg.Server, cfg.Token, remote.WithRequestTimeout(o.Timeout))
	if err != nil {
		return cfg, nil, err
	}
	return cfg, client, nil
}

// explain turns transport errors into something actionable.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, remote.ErrPermissionDenied):
		return fmt.Errorf("%w (session expired? run `levelup login`)", err)
	case errors.Is(err, remote.ErrTransientIO):
		return fmt.Errorf("%w (is the server running?)", err)
	default:
		return err
	}
}
