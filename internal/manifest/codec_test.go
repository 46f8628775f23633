package manifest_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swupd.dev/swupd/internal/manifest"
)

func validHash(b byte) digest.Digest {
	return digest.NewDigestFromEncoded(digest.SHA256, strings.Repeat(string(rune(b)), 64))
}

func TestDecodeParsesHeaderAndFiles(t *testing.T) {
	h := validHash('a')
	input := "MANIFEST\t10\n" +
		"component:\teditors\n" +
		"includes:\tos-core\n" +
		"\n" +
		"F.....\t" + h.String() + "\t10\t/usr/bin/ed\n" +
		"D.....\t" + manifest.ZeroHash.String() + "\t10\t/usr/bin\n"

	m, err := manifest.Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 10, m.Version)
	assert.Equal(t, "editors", m.Component)
	assert.Equal(t, []string{"os-core"}, m.Includes)
	require.Len(t, m.Files, 2)

	assert.Equal(t, "/usr/bin/ed", m.Files[0].Path)
	assert.Equal(t, manifest.TypeRegular, m.Files[0].Type)
	assert.Equal(t, h, m.Files[0].Hash)

	assert.Equal(t, "/usr/bin", m.Files[1].Path)
	assert.Equal(t, manifest.TypeDirectory, m.Files[1].Type)
}

func TestDecodeParsesFlags(t *testing.T) {
	h := validHash('b')
	line := "FdnX..\t" + h.String() + "\t1\t/etc/foo\n"
	// 'X' is not a config marker char but decodeFileLine only checks '.'
	// vs non-'.' per position, so any non-'.' byte sets the flag.
	input := "MANIFEST\t1\n\n" + line
	m, err := manifest.Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, m.Files, 1)
	f := m.Files[0]
	assert.True(t, f.Flags.Deleted)
	assert.True(t, f.Flags.DoNotUpdate)
	assert.True(t, f.Flags.Config)
	assert.False(t, f.Flags.State)
	assert.False(t, f.Flags.Boot)
}

func TestDecodeManifestPointerGoesToManifestsNotFiles(t *testing.T) {
	input := "MANIFEST\t5\n\n" + "M.....\t" + manifest.ZeroHash.String() + "\t5\teditors\n"
	m, err := manifest.Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, m.Files)
	require.Len(t, m.Manifests, 1)
	assert.Equal(t, "editors", m.Manifests[0].Path)
	ptr := m.Pointer("editors")
	require.NotNil(t, ptr)
	assert.Equal(t, m.Manifests[0], ptr)
	assert.Nil(t, m.Pointer("nonexistent"))
}

func TestDecodeRejectsMissingHeader(t *testing.T) {
	_, err := manifest.Decode(strings.NewReader("not-a-manifest\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsBadHash(t *testing.T) {
	input := "MANIFEST\t1\n\nF.....\tnot-a-hash\t1\t/a\n"
	_, err := manifest.Decode(strings.NewReader(input))
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h1 := validHash('c')
	h2 := validHash('d')
	m := &manifest.Manifest{
		Component: "editors",
		Version:   42,
		Includes:  []string{"os-core", "desktop"},
		Files: []*manifest.File{
			{Path: "/usr/bin/ed", Hash: h1, Type: manifest.TypeRegular, LastChange: 40},
			{Path: "/usr/bin/vi", Hash: h2, Type: manifest.TypeSymlink, LastChange: 42,
				Flags: manifest.Flags{Config: true, Boot: true}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, manifest.Encode(&buf, m))

	decoded, err := manifest.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, m.Component, decoded.Component)
	assert.Equal(t, m.Version, decoded.Version)
	assert.Equal(t, m.Includes, decoded.Includes)
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, m.Files[0].Path, decoded.Files[0].Path)
	assert.Equal(t, m.Files[0].Hash, decoded.Files[0].Hash)
	assert.Equal(t, m.Files[1].Flags.Config, decoded.Files[1].Flags.Config)
	assert.Equal(t, m.Files[1].Flags.Boot, decoded.Files[1].Flags.Boot)
	assert.False(t, decoded.Files[1].Flags.Deleted)
}

func TestHasInclude(t *testing.T) {
	m := &manifest.Manifest{Includes: []string{"os-core", "editors"}}
	assert.True(t, m.HasInclude("editors"))
	assert.False(t, m.HasInclude("desktop"))
}
