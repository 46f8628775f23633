package bundle_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swupd.dev/swupd/internal/bundle"
	"swupd.dev/swupd/internal/fetchtest"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/state"
)

func manifestWithPointers(version int, pointers ...*manifest.File) *manifest.Manifest {
	return &manifest.Manifest{Component: manifest.MoMComponent, Version: version, Manifests: pointers}
}

func TestInstallSingleBundleStagesAndCommitsFiles(t *testing.T) {
	f := fetchtest.New()

	osCore := &manifest.Manifest{Component: "os-core", Version: 10, Files: []*manifest.File{
		regularFile("/usr/bin/sh", 10, "shell"),
	}}
	f.PutManifest(10, "os-core", encodeManifest(t, osCore))
	f.PutContent(osCore.Files[0].Hash.Encoded(), []byte("shell"))

	mom := manifestWithPointers(10, pointer("os-core", 10))
	f.PutManifest(10, manifest.MoMComponent, encodeManifest(t, mom))

	bc, root := testContext(t, f, 10)
	require.NoError(t, bundle.Install(context.Background(), bc, []string{"os-core"}))

	got, err := os.ReadFile(filepath.Join(root, "/usr/bin/sh"))
	require.NoError(t, err)
	assert.Equal(t, "shell", string(got))

	assert.True(t, state.IsTracked(root, "os-core"))
}

func TestInstallWithIncludeStagesBothBundles(t *testing.T) {
	f := fetchtest.New()

	osCore := &manifest.Manifest{Component: "os-core", Version: 10, Files: []*manifest.File{
		regularFile("/usr/bin/sh", 10, "shell"),
	}}
	editors := &manifest.Manifest{Component: "editors", Version: 10, Includes: []string{"os-core"}, Files: []*manifest.File{
		regularFile("/usr/bin/ed", 10, "editor"),
	}}
	f.PutManifest(10, "os-core", encodeManifest(t, osCore))
	f.PutManifest(10, "editors", encodeManifest(t, editors))
	f.PutContent(osCore.Files[0].Hash.Encoded(), []byte("shell"))
	f.PutContent(editors.Files[0].Hash.Encoded(), []byte("editor"))

	mom := manifestWithPointers(10, pointer("os-core", 10), pointer("editors", 10))
	f.PutManifest(10, manifest.MoMComponent, encodeManifest(t, mom))

	bc, root := testContext(t, f, 10)
	require.NoError(t, bundle.Install(context.Background(), bc, []string{"editors"}))

	for _, want := range []struct{ path, content string }{
		{"/usr/bin/sh", "shell"},
		{"/usr/bin/ed", "editor"},
	} {
		got, err := os.ReadFile(filepath.Join(root, want.path))
		require.NoError(t, err)
		assert.Equal(t, want.content, string(got))
	}

	assert.True(t, state.IsTracked(root, "os-core"))
	assert.True(t, state.IsTracked(root, "editors"))
}

func TestInstallAlreadyInstalledBundleFails(t *testing.T) {
	f := fetchtest.New()

	osCore := &manifest.Manifest{Component: "os-core", Version: 10}
	f.PutManifest(10, "os-core", encodeManifest(t, osCore))

	mom := manifestWithPointers(10, pointer("os-core", 10))
	f.PutManifest(10, manifest.MoMComponent, encodeManifest(t, mom))

	bc, root := testContext(t, f, 10)
	require.NoError(t, state.CreateMarker(root, "os-core"))
	require.NoError(t, bc.Subs.LoadTracked(root))

	err := bundle.Install(context.Background(), bc, []string{"os-core"})
	assert.ErrorIs(t, err, bundle.ErrBundleInstall)
}

func TestInstallSkipsConfigFlaggedFiles(t *testing.T) {
	f := fetchtest.New()

	configFile := regularFile("/etc/swupd/local.conf", 10, "local")
	configFile.Flags.Config = true

	osCore := &manifest.Manifest{Component: "os-core", Version: 10, Files: []*manifest.File{
		regularFile("/usr/bin/sh", 10, "shell"),
		configFile,
	}}
	f.PutManifest(10, "os-core", encodeManifest(t, osCore))
	f.PutContent(osCore.Files[0].Hash.Encoded(), []byte("shell"))

	mom := manifestWithPointers(10, pointer("os-core", 10))
	f.PutManifest(10, manifest.MoMComponent, encodeManifest(t, mom))

	bc, root := testContext(t, f, 10)
	require.NoError(t, bundle.Install(context.Background(), bc, []string{"os-core"}))

	_, err := os.ReadFile(filepath.Join(root, "/usr/bin/sh"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "/etc/swupd/local.conf"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallUnknownBundleNameIsSkippedAsNoNew(t *testing.T) {
	f := fetchtest.New()
	mom := manifestWithPointers(10)
	f.PutManifest(10, manifest.MoMComponent, encodeManifest(t, mom))

	bc, _ := testContext(t, f, 10)
	err := bundle.Install(context.Background(), bc, []string{"ghost"})
	assert.ErrorIs(t, err, bundle.ErrBundleInstall)
}
