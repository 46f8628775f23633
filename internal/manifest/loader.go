package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/opencontainers/go-digest"

	"swupd.dev/swupd/internal/fetch"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// MaxTries bounds the number of fetch attempts for a single manifest before
// the retry budget is exhausted.
const MaxTries = fetch.MaxTries

// ErrMoMNotFound is returned by Loader.LoadMoM once the retry budget is
// exhausted without a successful, verified fetch.
var ErrMoMNotFound = fmt.Errorf("manifest: MoM could not be loaded")

// Verifier checks a raw manifest blob's signature before it is safe to
// parse. It is a collaborator outside this package's scope; production
// code wires it to the real signature-verification routine.
type Verifier interface {
	Verify(raw []byte) error
}

// NoopVerifier accepts every blob. It exists so tests and local/offline
// use (e.g. a pre-verified manifest cache) can opt out of signature
// checking explicitly, never implicitly.
type NoopVerifier struct{}

func (NoopVerifier) Verify([]byte) error { return nil }

// Loader fetches and verifies manifests, retrying with exponential backoff
// plus jitter on failure.
type Loader struct {
	Fetcher  fetch.Fetcher
	Verifier Verifier
}

// NewLoader returns a Loader that fetches with fetcher and verifies
// signatures with verifier.
func NewLoader(fetcher fetch.Fetcher, verifier Verifier) *Loader {
	if verifier == nil {
		verifier = NoopVerifier{}
	}
	return &Loader{Fetcher: fetcher, Verifier: verifier}
}

// LoadMoM fetches, verifies, and parses the MoM for version. It makes up to
// MaxTries attempts with exponential backoff plus jitter between them.
func (l *Loader) LoadMoM(ctx context.Context, version int) (*Manifest, error) {
	raw, err := retryFetch(ctx, func() ([]byte, error) {
		return l.Fetcher.FetchManifest(ctx, version, MoMComponent)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMoMNotFound, err)
	}

	if err := l.Verifier.Verify(raw); err != nil {
		return nil, fmt.Errorf("%w: signature verification failed: %v", ErrMoMNotFound, err)
	}

	m, err := Decode(bytesReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMoMNotFound, err)
	}
	m.Component = MoMComponent
	m.Version = version
	return m, nil
}

// LoadSub fetches a bundle manifest, verifying its content hash against
// expectedHash (taken from parentMoM's pointer entry) before parsing. An
// empty or all-zero expectedHash skips the hash check.
func (l *Loader) LoadSub(ctx context.Context, version int, name string, expectedHash digest.Digest, parentMoM *Manifest) (*Manifest, error) {
	_ = parentMoM // kept for the caller's convenience; the pointer entry was already resolved by the caller

	raw, err := retryFetch(ctx, func() ([]byte, error) {
		return l.Fetcher.FetchManifest(ctx, version, name)
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: loading %s: %w", name, err)
	}

	if expectedHash != "" && expectedHash != ZeroHash {
		if got := digest.FromBytes(raw); got != expectedHash {
			return nil, fmt.Errorf("manifest: %s: hash mismatch: want %s, got %s", name, expectedHash, got)
		}
	}

	if err := l.Verifier.Verify(raw); err != nil {
		return nil, fmt.Errorf("manifest: %s: signature verification failed: %w", name, err)
	}

	m, err := Decode(bytesReader(raw))
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", name, err)
	}
	m.Component = name
	return m, nil
}

// retryFetch calls fn up to MaxTries times, sleeping between attempts
// with a doubling timeout plus uniform jitter, matching the manifest
// loader's retry policy.
func retryFetch(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	var lastErr error
	timeout := time.Second

	for attempt := 0; attempt < MaxTries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(timeout/4 + 1)))
			select {
			case <-time.After(timeout + jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			timeout *= 2
		}

		raw, err := fn()
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("exhausted %d attempts: %w", MaxTries, lastErr)
}
