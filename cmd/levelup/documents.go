// ABOUTME: doc command for reading raw documents from the signed-in user's namespace
// ABOUTME: Paths are relative to the server's document tree, e.g. notes/{uid}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
)

// NewDocCommand creates the doc command group.
func NewDocCommand(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Read raw documents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <path>",
		Short: "Print a document as JSON",
		Long: `Print a document as JSON. "~" in the path is replaced with your user id:

  levelup doc get notes/~
  levelup doc get users/~/calendar/2024-5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := o.documents()
			if err != nil {
				return err
			}
			h, err := remote.ParsePath(strings.ReplaceAll(args[0], "~", cfg.UserID))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
			defer cancel()
			doc, err := client.FetchOnce(ctx, h)
			if errors.Is(err, remote.ErrNotFound) {
				return fmt.Errorf("no document at %s", h)
			}
			if err != nil {
				return explain(err)
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	})

	return cmd
}
