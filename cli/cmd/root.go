// Package cmd wires the swupd CLI surface: a cobra root command carrying
// the shared --root/--state-dir/--content-url/--config flags and logging
// setup, with one subcommand package per bundle operation.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	swupdlog "swupd.dev/swupd/cli/log"
	"swupd.dev/swupd/internal/config"
)

// Swupd is the root command and the shared configuration its subcommands
// read from.
type Swupd struct {
	*cobra.Command
	Config config.Config
}

// Root is the process-wide root command.
var Root *Swupd

func init() {
	Root = &Swupd{
		Command: &cobra.Command{
			Use:   "swupd [sub-command]",
			Short: "Manage installed bundles on an image-based Linux host",
			Long: `swupd lists, installs, and removes the component bundles that make up
an OS release, resolving manifest includes and staging content before
committing changes to the live root filesystem.`,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cmd.Help()
			},
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				logger, err := swupdlog.GetBaseLogger(cmd)
				if err != nil {
					return fmt.Errorf("could not configure logger: %w", err)
				}
				slog.SetDefault(logger)

				configPath, err := cmd.Flags().GetString("config")
				if err != nil {
					return err
				}
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("could not load configuration: %w", err)
				}

				if root, _ := cmd.Flags().GetString("root"); root != "" {
					cfg.Root = root
				}
				if stateDir, _ := cmd.Flags().GetString("state-dir"); stateDir != "" {
					cfg.StateDir = stateDir
				}
				if url, _ := cmd.Flags().GetString("content-url"); url != "" {
					cfg.ContentURL = url
				}
				Root.Config = cfg

				return nil
			},
			DisableAutoGenTag: true,
		},
	}

	Root.PersistentFlags().String("root", "", "root filesystem prefix bundle operations mutate (default: config root)")
	Root.PersistentFlags().String("state-dir", "", "mutable state directory (default: config state_dir)")
	Root.PersistentFlags().String("content-url", "", "base URL of the content server (default: config content_url)")
	Root.PersistentFlags().String("config", "/etc/swupd/config.yaml", "path to the swupd configuration file")
	swupdlog.RegisterLoggingFlags(Root.Command)
}
