// Package fetchtest provides an in-memory fetch.Fetcher fake so the
// manifest, graph, stage, and bundle packages can be tested without a real
// content server.
package fetchtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"swupd.dev/swupd/internal/fetch"
)

// Fetcher serves manifests, content, and packs from in-memory maps. Keys
// for manifests are "<version>/<name>", for content the raw hash string.
type Fetcher struct {
	mu sync.Mutex

	Manifests map[string][]byte
	Content   map[string][]byte
	Packs     map[string][]byte

	version int

	// FailManifest, if set, makes the next FailManifest FetchManifest calls
	// fail, counted across all names and versions (used to exercise retry
	// paths).
	FailManifest int
}

// New returns an empty Fetcher ready to have manifests/content registered.
func New() *Fetcher {
	return &Fetcher{
		Manifests: map[string][]byte{},
		Content:   map[string][]byte{},
		Packs:     map[string][]byte{},
	}
}

func (f *Fetcher) SetCurrentVersion(version int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = version
}

func (f *Fetcher) PutManifest(version int, name string, raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Manifests[key(version, name)] = raw
}

func (f *Fetcher) PutContent(hash string, raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Content[hash] = raw
}

func (f *Fetcher) FetchManifest(ctx context.Context, version int, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailManifest > 0 {
		f.FailManifest--
		return nil, fmt.Errorf("fetchtest: simulated failure")
	}
	raw, ok := f.Manifests[key(version, name)]
	if !ok {
		return nil, fmt.Errorf("fetchtest: no manifest for %s", key(version, name))
	}
	return raw, nil
}

func (f *Fetcher) FetchContent(ctx context.Context, version int, hash string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.Content[hash]
	if !ok {
		return nil, fmt.Errorf("fetchtest: no content for %s", hash)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *Fetcher) FetchPack(ctx context.Context, version int, name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.Packs[key(version, name)]
	if !ok {
		return nil, fetch.ErrNoPack
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func key(version int, name string) string {
	return fmt.Sprintf("%d/%s", version, name)
}
