// Package remove implements the "swupd remove" subcommand: uninstall a
// single bundle without damaging files still owned by another installed
// bundle.
package remove

import (
	"github.com/spf13/cobra"

	"swupd.dev/swupd/internal/bundle"
	"swupd.dev/swupd/internal/config"
)

// New returns the "remove" subcommand.
func New(getConfig func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <bundle>",
		Short: "Remove an installed bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bc, err := bundle.Setup(ctx, getConfig())
			if err != nil {
				return err
			}
			defer bc.Close()
			defer bc.Lock.Close()

			return bundle.Remove(ctx, bc, args[0])
		},
	}
}
