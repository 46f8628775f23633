//go:build !linux

package stage

// syncFilesystem is a no-op outside Linux; swupd only targets image-based
// Linux hosts, but the build stays portable for local development.
func syncFilesystem() {}
