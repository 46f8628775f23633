package consolidate_test

import (
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swupd.dev/swupd/internal/consolidate"
	"swupd.dev/swupd/internal/manifest"
)

func file(path string, version int, deleted bool, hashHex string) *manifest.File {
	return &manifest.File{
		Path:       path,
		Hash:       digest.NewDigestFromEncoded(digest.SHA256, hashHex),
		LastChange: version,
		Flags:      manifest.Flags{Deleted: deleted},
	}
}

func manifestWithFiles(files ...*manifest.File) *manifest.Manifest {
	return &manifest.Manifest{Files: files}
}

func TestConsolidateKeepsHighestVersionNonDeleted(t *testing.T) {
	h1 := "1111111111111111111111111111111111111111111111111111111111111111"
	h2 := "2222222222222222222222222222222222222222222222222222222222222222"

	files := []*manifest.File{
		file("/usr/bin/ed", 3, false, h1),
		file("/usr/bin/ed", 5, false, h2),
		file("/usr/bin/ed", 5, true, h1),
		file("/etc/motd", 1, false, h1),
	}

	out := consolidate.Consolidate(files)

	require.Len(t, out, 2)
	assert.Equal(t, "/etc/motd", out[0].Path)
	assert.Equal(t, "/usr/bin/ed", out[1].Path)
	assert.Equal(t, 5, out[1].LastChange)
	assert.False(t, out[1].Flags.Deleted)
	assert.Equal(t, h2, out[1].Hash.Encoded())
}

func TestConsolidateNoDuplicatePaths(t *testing.T) {
	h := "3333333333333333333333333333333333333333333333333333333333333333"
	files := []*manifest.File{
		file("/a", 1, false, h),
		file("/a", 2, false, h),
		file("/b", 1, false, h),
	}
	out := consolidate.Consolidate(files)

	seen := map[string]bool{}
	for _, f := range out {
		require.False(t, seen[f.Path], "duplicate path %s", f.Path)
		seen[f.Path] = true
	}
}

func TestFilesFromConcatenatesInOrder(t *testing.T) {
	h := "4444444444444444444444444444444444444444444444444444444444444444"
	m1 := manifestWithFiles(file("/a", 1, false, h))
	m2 := manifestWithFiles(file("/b", 1, false, h), file("/c", 1, false, h))

	out := consolidate.FilesFrom([]*manifest.Manifest{m1, m2})

	require.Len(t, out, 3)
	assert.Equal(t, "/a", out[0].Path)
	assert.Equal(t, "/b", out[1].Path)
	assert.Equal(t, "/c", out[2].Path)
}

func TestDedupRemovesSharedPaths(t *testing.T) {
	h := "5555555555555555555555555555555555555555555555555555555555555555"
	bundleFiles := consolidate.SortByPath([]*manifest.File{
		file("/usr/bin/ed", 1, false, h),
		file("/usr/bin/only-in-editors", 1, false, h),
	})
	reference := consolidate.SortByPath([]*manifest.File{
		file("/usr/bin/ed", 1, false, h),
	})

	out := consolidate.Dedup(bundleFiles, reference)

	require.Len(t, out, 1)
	assert.Equal(t, "/usr/bin/only-in-editors", out[0].Path)
}

func TestDedupSharesNoPathWithReference(t *testing.T) {
	h := "6666666666666666666666666666666666666666666666666666666666666666"
	bundleFiles := consolidate.SortByPath([]*manifest.File{
		file("/a", 1, false, h),
		file("/b", 1, false, h),
		file("/c", 1, false, h),
	})
	reference := consolidate.SortByPath([]*manifest.File{
		file("/b", 1, false, h),
	})

	out := consolidate.Dedup(bundleFiles, reference)

	refPaths := map[string]bool{}
	for _, f := range reference {
		refPaths[f.Path] = true
	}
	for _, f := range out {
		assert.False(t, refPaths[f.Path])
	}
}
