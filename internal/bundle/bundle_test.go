package bundle_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"

	"swupd.dev/swupd/internal/bundle"
	"swupd.dev/swupd/internal/fetchtest"
	"swupd.dev/swupd/internal/graph"
	"swupd.dev/swupd/internal/journal"
	"swupd.dev/swupd/internal/lock"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/stage"
	"swupd.dev/swupd/internal/state"
)

// testContext assembles a *bundle.Context the same way bundle.Setup does,
// against a fresh temp root and an in-memory fetcher instead of
// version.Discover and a real HTTP fetcher.
func testContext(t *testing.T, f *fetchtest.Fetcher, version int) (*bundle.Context, string) {
	t.Helper()
	root := t.TempDir()
	stateDir := t.TempDir()

	lh, err := lock.Init(context.Background(), root, stateDir, version, f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lh.Close() })

	j, err := journal.Open(stateDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	loader := manifest.NewLoader(f, manifest.NoopVerifier{})
	resolver := graph.NewResolver(loader)
	stager := stage.New(root, lh.StagedDir, f)

	subs := state.NewSet()
	require.NoError(t, subs.LoadTracked(root))

	bc := &bundle.Context{
		Lock:           lh,
		Fetcher:        f,
		Loader:         loader,
		Resolver:       resolver,
		Stager:         stager,
		Journal:        j,
		Root:           root,
		CurrentVersion: version,
		Subs:           subs,
	}
	return bc, root
}

func encodeManifest(t *testing.T, m *manifest.Manifest) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, manifest.Encode(&buf, m))
	return buf.Bytes()
}

func pointer(name string, version int) *manifest.File {
	return &manifest.File{Path: name, Type: manifest.TypeManifestPointer, Hash: manifest.ZeroHash, LastChange: version}
}

func regularFile(path string, version int, content string) *manifest.File {
	return &manifest.File{Path: path, Type: manifest.TypeRegular, Hash: digest.FromBytes([]byte(content)), LastChange: version}
}
