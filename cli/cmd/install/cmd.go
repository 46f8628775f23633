// Package install implements the "swupd install" subcommand: subscribe to
// one or more bundles and stage-then-commit every file their resolved
// install set requires.
package install

import (
	"github.com/spf13/cobra"

	"swupd.dev/swupd/internal/bundle"
	"swupd.dev/swupd/internal/config"
)

// New returns the "install" subcommand.
func New(getConfig func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "install <bundle>...",
		Short: "Install one or more bundles",
		Long: `Install one or more bundles and their transitive includes.

If a prior install was interrupted, the state directory's journal records
the renames it had already committed; check it before re-running so a
partially applied install can be diagnosed instead of silently retried.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bc, err := bundle.Setup(ctx, getConfig())
			if err != nil {
				return err
			}
			defer bc.Close()
			defer bc.Lock.Close()

			return bundle.Install(ctx, bc, args)
		},
	}
}
