// Package fetch implements the retry-with-backoff network fetcher contract
// that the manifest loader and stager depend on. Manifest parsing, content
// decompression, and signature verification are collaborators outside this
// package; fetch only moves bytes.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// MaxTries bounds the number of attempts made for any single fetch before
// the caller's retry budget is considered exhausted.
const MaxTries = 5

// baseTimeout is the initial sleep between attempt 1 and attempt 2. Each
// subsequent sleep doubles the previous one, plus a small uniform jitter, as
// specified for the manifest loader's retry policy.
const baseTimeout = 1 * time.Second

// Fetcher is the network-facing collaborator the manifest loader and stager
// depend on. Parsing and signature verification happen above this
// interface; Fetcher only returns bytes.
type Fetcher interface {
	// SetCurrentVersion records the current OS version. HTTPFetcher only
	// logs it with each request; URLs are built from each call's version
	// argument.
	SetCurrentVersion(version int)

	// FetchManifest returns the raw manifest blob for (version, name).
	FetchManifest(ctx context.Context, version int, name string) ([]byte, error)

	// FetchContent returns the raw content blob for a content-addressed
	// hash, at whatever version last introduced it.
	FetchContent(ctx context.Context, version int, hash string) (io.ReadCloser, error)

	// FetchPack downloads a bundle's delta pack for a subscribed bundle, or
	// ErrNoPack if the server has none to offer (the caller falls back to
	// per-file content fetches).
	FetchPack(ctx context.Context, version int, name string) (io.ReadCloser, error)
}

// ErrNoPack indicates the content server has no pack available; the caller
// should fall back to fetching individual file content by hash.
var ErrNoPack = fmt.Errorf("fetch: no pack available")

// HTTPFetcher is the production Fetcher, backed by
// github.com/hashicorp/go-retryablehttp configured with the exponential
// backoff-plus-jitter policy specified for manifest and content fetches.
type HTTPFetcher struct {
	client *retryablehttp.Client
	base   string

	mu      sync.RWMutex
	version int
}

// NewHTTPFetcher builds a Fetcher that resolves manifest, content, and pack
// URLs against baseURL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = MaxTries - 1
	client.RetryWaitMin = baseTimeout
	client.RetryWaitMax = baseTimeout << uint(MaxTries)
	client.Backoff = backoffWithJitter
	client.Logger = nil // the caller configures slog globally; retryablehttp's own logger would double-log

	return &HTTPFetcher{client: client, base: baseURL}
}

// backoffWithJitter implements "sleep timeout, then double timeout plus a
// small uniform random jitter" in terms retryablehttp.Client.Backoff
// expects: attemptNum is zero-based, so the sleep before attempt N is
// min*2^(N-1) plus jitter, capped at max.
func backoffWithJitter(min, max time.Duration, attemptNum int, _ *http.Response) time.Duration {
	d := min << uint(attemptNum)
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(min) + 1))
	d += jitter
	if d > max {
		d = max
	}
	return d
}

func (f *HTTPFetcher) SetCurrentVersion(version int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = version
}

func (f *HTTPFetcher) currentVersion() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

func (f *HTTPFetcher) FetchManifest(ctx context.Context, version int, name string) ([]byte, error) {
	url := fmt.Sprintf("%s/%d/Manifest.%s", f.base, version, name)
	return f.getBytes(ctx, url)
}

func (f *HTTPFetcher) FetchContent(ctx context.Context, version int, hash string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%d/files/%s.tar", f.base, version, hash)
	return f.getReader(ctx, url)
}

func (f *HTTPFetcher) FetchPack(ctx context.Context, version int, name string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%d/pack-%s-from-0.tar", f.base, version, name)
	resp, err := f.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, ErrNoPack
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch: pack %s: unexpected status %s", name, resp.Status)
	}
	return resp.Body, nil
}

func (f *HTTPFetcher) getBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (f *HTTPFetcher) getReader(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := f.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch: %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

func (f *HTTPFetcher) doGet(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: building request for %s: %w", url, err)
	}
	slog.Debug("fetching", slog.String("url", url), slog.Int("os_version", f.currentVersion()))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %s: %w", url, err)
	}
	return resp, nil
}
