// Package manifest defines the bundle manifest data model: the File entry,
// the Manifest record that groups files for one bundle (or the MoM for the
// whole OS version), and the wire codec used to decode/encode both.
package manifest

import (
	"github.com/opencontainers/go-digest"
)

// FileType identifies what kind of filesystem entry a File describes.
type FileType int

const (
	TypeRegular FileType = iota
	TypeDirectory
	TypeSymlink
	// TypeManifestPointer marks a File that is itself a pointer to another
	// bundle's manifest. Only the MoM's Manifests slice contains these.
	TypeManifestPointer
)

func (t FileType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	case TypeManifestPointer:
		return "manifest-pointer"
	default:
		return "regular"
	}
}

// Flags carries the per-file boolean attributes recorded in a manifest.
type Flags struct {
	Deleted     bool // tombstone: file has been removed as of this entry's version
	DoNotUpdate bool // install once, never overwrite on subsequent updates
	Config      bool // user-editable configuration file
	State       bool // mutable runtime state, not part of the image proper
	Boot        bool // boot-critical; staged and renamed with extra care upstream
}

// ZeroHash is the all-zero digest used by deletion tombstones, which carry
// no content.
const ZeroHash = digest.Digest("sha256:0000000000000000000000000000000000000000000000000000000000000000")

// File is one path owned by a bundle manifest.
type File struct {
	Path       string
	Hash       digest.Digest
	Type       FileType
	Flags      Flags
	LastChange int // OS version in which this entry was introduced at its current hash

	// Staging is the transient absolute path of the staged copy of this
	// file during an install. It is unset (empty) outside of an install in
	// progress, and is never set for a deleted entry.
	Staging string
}

// Manifest describes one bundle (or, when Component is "MoM", the root
// manifest of an OS version).
type Manifest struct {
	Component string
	Version   int
	Files     []*File
	Includes  []string

	// Manifests is only populated for a MoM: one File of TypeManifestPointer
	// per bundle available at this version.
	Manifests []*File

	// Submanifests is only populated for a MoM, and only after graph
	// resolution: the loaded child Manifests that round out the install or
	// remove set currently being computed.
	Submanifests []*Manifest
}

const MoMComponent = "MoM"

// Pointer returns the manifest-pointer File for name within a MoM's
// Manifests list, or nil if name is not listed. For a manifest-pointer
// entry, Path holds the bundle's component name rather than a filesystem
// path.
func (m *Manifest) Pointer(name string) *File {
	for _, f := range m.Manifests {
		if f.Path == name {
			return f
		}
	}
	return nil
}

// HasInclude reports whether name appears in Includes.
func (m *Manifest) HasInclude(name string) bool {
	for _, inc := range m.Includes {
		if inc == name {
			return true
		}
	}
	return false
}
