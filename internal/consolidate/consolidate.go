// Package consolidate merges the file lists of a set of submanifests into a
// single per-path view and provides the de-duplication step used by bundle
// removal to protect files still owned by other installed bundles.
package consolidate

import (
	"sort"

	"swupd.dev/swupd/internal/manifest"
)

// FilesFrom concatenates the Files of every submanifest in submanifests,
// preserving input order. It is the input to Consolidate.
func FilesFrom(submanifests []*manifest.Manifest) []*manifest.File {
	total := 0
	for _, sm := range submanifests {
		total += len(sm.Files)
	}
	out := make([]*manifest.File, 0, total)
	for _, sm := range submanifests {
		out = append(out, sm.Files...)
	}
	return out
}

// sortKeyLess implements the consolidated ordering: path ASC, version DESC,
// non-deleted before deleted, hash ASC. Ties are otherwise stable.
func sortKeyLess(a, b *manifest.File) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if a.LastChange != b.LastChange {
		return a.LastChange > b.LastChange
	}
	if a.Flags.Deleted != b.Flags.Deleted {
		return !a.Flags.Deleted
	}
	return a.Hash < b.Hash
}

// Consolidate sorts files by (path ASC, version DESC, deleted-last, hash
// ASC) and keeps only the first entry for each distinct path: the
// highest-version, non-deleted entry wins, with hash breaking ties
// deterministically. The result shares no path across two entries.
func Consolidate(files []*manifest.File) []*manifest.File {
	sorted := make([]*manifest.File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortKeyLess(sorted[i], sorted[j])
	})

	out := make([]*manifest.File, 0, len(sorted))
	var lastPath string
	seenAny := false
	for _, f := range sorted {
		if seenAny && f.Path == lastPath {
			continue
		}
		out = append(out, f)
		lastPath = f.Path
		seenAny = true
	}
	return out
}

// Dedup removes from bundleFiles every entry whose path also appears in
// referenceFiles. Both slices must already be sorted ascending by path; the
// walk is a single lock-step pass over both (O(n+m)). The returned slice
// shares no path with referenceFiles.
//
// This is what protects files during bundle removal: referenceFiles is the
// consolidated file set of every bundle that remains installed, so any path
// still claimed by a surviving bundle is never scheduled for deletion.
func Dedup(bundleFiles, referenceFiles []*manifest.File) []*manifest.File {
	out := make([]*manifest.File, 0, len(bundleFiles))

	i, j := 0, 0
	for i < len(bundleFiles) {
		bf := bundleFiles[i]
		for j < len(referenceFiles) && referenceFiles[j].Path < bf.Path {
			j++
		}
		if j < len(referenceFiles) && referenceFiles[j].Path == bf.Path {
			i++
			continue
		}
		out = append(out, bf)
		i++
	}
	return out
}

// SortByPath sorts files ascending by path in place and returns it, for
// callers (such as bundle removal) that need the Dedup precondition
// satisfied on a single bundle's raw file list.
func SortByPath(files []*manifest.File) []*manifest.File {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}
