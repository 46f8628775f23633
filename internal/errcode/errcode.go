// Package errcode maps the fixed error catalogue exposed to the CLI front
// end onto numeric exit codes, mirroring the updater's historical ABI.
package errcode

import (
	"errors"

	"swupd.dev/swupd/internal/bundle"
	"swupd.dev/swupd/internal/fetch"
	"swupd.dev/swupd/internal/graph"
	"swupd.dev/swupd/internal/lock"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/stage"
	"swupd.dev/swupd/internal/version"
)

const (
	Success           = 0
	ECurrentVersion   = 40
	EMoMNotFound      = 41
	ERecurseManifest  = 42
	EBundleNotTracked = 43
	EBundleRemove     = 44
	EBundleInstall    = 45
	EInitFailed       = 46
)

// For maps err onto the numeric exit code a CLI front end should report.
// Success (0) is returned for a nil error; an unrecognized error maps to
// EInitFailed, the generic init-failure bucket.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, version.ErrCurrentVersion), errors.Is(err, bundle.ErrCurrentVersion):
		return ECurrentVersion
	case errors.Is(err, manifest.ErrMoMNotFound):
		return EMoMNotFound
	case errors.Is(err, graph.ErrRecurseManifest):
		return ERecurseManifest
	case errors.Is(err, bundle.ErrBundleNotTracked):
		return EBundleNotTracked
	case errors.Is(err, bundle.ErrBundleRemove):
		return EBundleRemove
	// bundle.ErrBundleInstall covers subscription, pack download, marker and
	// script failures during install (resolution failures carry
	// graph.ErrRecurseManifest); stage.ErrBundleInstall covers the
	// staging/commit failures
	// install wraps on its way out (install.go's staging and commit error
	// paths). Both map to the same exit code.
	case errors.Is(err, bundle.ErrBundleInstall), errors.Is(err, stage.ErrBundleInstall), errors.Is(err, fetch.ErrNoPack):
		return EBundleInstall
	case errors.Is(err, lock.ErrBusy), errors.Is(err, bundle.ErrInitFailed):
		return EInitFailed
	default:
		return EInitFailed
	}
}
