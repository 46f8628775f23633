// Package version discovers the current OS version of a root filesystem.
// Real version discovery parses distribution release metadata; this is a
// thin, out-of-scope collaborator that the bundle operations depend on only
// through its return value.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// versionFile is the well-known path (relative to root) recording the OS
// version currently installed.
const versionFile = "usr/lib/swupd/os-version"

// ErrCurrentVersion is returned when the current version cannot be
// determined.
var ErrCurrentVersion = fmt.Errorf("version: unable to determine current OS version")

// Discover reads and parses the current OS version recorded under root.
func Discover(root string) (int, error) {
	data, err := os.ReadFile(filepath.Join(root, versionFile))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCurrentVersion, err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCurrentVersion, err)
	}
	return v, nil
}
