// Package lock implements the cross-process exclusion and staging-directory
// preparation that every bundle operation performs before touching the
// filesystem or network.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"swupd.dev/swupd/internal/fetch"
)

// ErrBusy is returned when another updater process already holds the lock.
var ErrBusy = fmt.Errorf("lock: another updater is running")

const lockFileName = ".swupd-lock"

// staging subdirectories created (mode 0700) under the state directory on
// every init.
var stagingSubdirs = []string{"staged", "download", "delta"}

// Handle is the scoped resource returned by Init. Close releases the lock
// and must run on every exit path of every bundle operation.
type Handle struct {
	flock     *flock.Flock
	StateDir  string
	RootDir   string
	StagedDir string
}

// Init acquires the process-wide exclusive lock under stateDir, creates the
// staging subdirectories if absent, and registers currentVersion with
// fetcher. It fails immediately (ErrBusy) if another updater already holds
// the lock; there is no wait-queue.
func Init(ctx context.Context, rootDir, stateDir string, currentVersion int, fetcher fetch.Fetcher) (*Handle, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: creating state directory %s: %w", stateDir, err)
	}

	fl := flock.New(filepath.Join(stateDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock: acquiring lock: %w", err)
	}
	if !locked {
		return nil, ErrBusy
	}

	for _, sub := range stagingSubdirs {
		path := filepath.Join(stateDir, sub)
		if err := os.MkdirAll(path, 0o700); err != nil {
			_ = fl.Unlock()
			return nil, fmt.Errorf("lock: creating staging directory %s: %w", path, err)
		}
	}

	if fetcher != nil {
		fetcher.SetCurrentVersion(currentVersion)
	}

	slog.Debug("updater initialized", slog.String("state_dir", stateDir), slog.Int("os_version", currentVersion))

	return &Handle{
		flock:     fl,
		StateDir:  stateDir,
		RootDir:   rootDir,
		StagedDir: filepath.Join(stateDir, "staged"),
	}, nil
}

// Close releases the lock. Safe to call on a nil Handle.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	if err := h.flock.Unlock(); err != nil {
		return fmt.Errorf("lock: releasing lock: %w", err)
	}
	return nil
}

// DownloadDir returns the path to the download staging subdirectory.
func (h *Handle) DownloadDir() string { return filepath.Join(h.StateDir, "download") }

// DeltaDir returns the path to the delta staging subdirectory.
func (h *Handle) DeltaDir() string { return filepath.Join(h.StateDir, "delta") }

// ClearDownloadDir removes and recreates the download directory, as done
// before every install's pack download.
func (h *Handle) ClearDownloadDir() error {
	dir := h.DownloadDir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("lock: clearing download directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("lock: recreating download directory: %w", err)
	}
	return nil
}
