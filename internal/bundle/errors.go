package bundle

import "fmt"

// Sentinel errors mapped to the fixed error-code catalogue exposed to the
// CLI front end. Wrapped errors from collaborator packages satisfy
// errors.Is against these via %w chains.
var (
	ErrCurrentVersion   = fmt.Errorf("bundle: unable to determine current OS version")
	ErrBundleNotTracked = fmt.Errorf("bundle: not tracked")
	ErrBundleRemove     = fmt.Errorf("bundle: cannot remove")
	ErrBundleInstall    = fmt.Errorf("bundle: cannot install")
	ErrInitFailed       = fmt.Errorf("bundle: updater initialization failed")
)

// OSCoreBundle is implicit in every system and must never be a removal
// target.
const OSCoreBundle = "os-core"
