//go:build linux

package stage

import "syscall"

// syncFilesystem issues the whole-filesystem sync barrier required before
// post-install scripts run.
func syncFilesystem() {
	syscall.Sync()
}
