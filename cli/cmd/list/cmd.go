// Package list implements the "swupd list" subcommand: print every bundle
// name the current OS version's MoM advertises.
package list

import (
	"fmt"

	"github.com/spf13/cobra"

	"swupd.dev/swupd/internal/bundle"
	"swupd.dev/swupd/internal/config"
)

// New returns the "list" subcommand. getConfig supplies the resolved
// configuration at RunE time (after the root command's persistent flags
// have been parsed).
func New(getConfig func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bundles available for the current OS version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bc, err := bundle.Setup(ctx, getConfig())
			if err != nil {
				return err
			}
			defer bc.Close()
			defer bc.Lock.Close()

			names, err := bundle.List(ctx, bc)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
