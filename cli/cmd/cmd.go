package cmd

import (
	"swupd.dev/swupd/cli/cmd/install"
	"swupd.dev/swupd/cli/cmd/list"
	"swupd.dev/swupd/cli/cmd/remove"
	"swupd.dev/swupd/internal/config"
)

func configFunc() config.Config { return Root.Config }

// New returns the fully assembled root command, every subcommand attached.
func New() *Swupd {
	Root.AddCommand(list.New(configFunc))
	Root.AddCommand(install.New(configFunc))
	Root.AddCommand(remove.New(configFunc))
	return Root
}
