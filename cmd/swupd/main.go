// Command swupd is the CLI front end for the bundle lifecycle core: list,
// install, and remove. It only parses arguments and maps the resulting
// error onto the fixed exit code catalogue; all behavior lives in
// internal/bundle and its collaborators.
package main

import (
	"os"

	"swupd.dev/swupd/cli/cmd"
	"swupd.dev/swupd/internal/errcode"
)

func main() {
	root := cmd.New()
	err := root.Execute()
	os.Exit(errcode.For(err))
}
