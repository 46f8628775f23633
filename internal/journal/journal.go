// Package journal records the set of renames an install has committed, so a
// future run can detect and report a half-applied install left behind by a
// killed process or a mutation-phase failure. It does not implement
// rollback; it only makes a partial install diagnosable.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

const fileName = "journal"

// Journal appends one line per committed rename to a file under the state
// directory, and is truncated on successful completion of the install it
// was opened for.
type Journal struct {
	path string
	f    *os.File
}

// Open opens (creating if absent) the journal file under stateDir for
// appending.
func Open(stateDir string) (*Journal, error) {
	path := filepath.Join(stateDir, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}
	return &Journal{path: path, f: f}, nil
}

// RecordRename appends a line noting that src was renamed onto dst.
func (j *Journal) RecordRename(src, dst string) error {
	if j == nil {
		return nil
	}
	if _, err := fmt.Fprintf(j.f, "%s\t%s\n", src, dst); err != nil {
		return fmt.Errorf("journal: recording rename: %w", err)
	}
	return nil
}

// Complete truncates the journal, marking the install it tracked as
// cleanly finished.
func (j *Journal) Complete() error {
	if j == nil {
		return nil
	}
	if err := j.f.Truncate(0); err != nil {
		return fmt.Errorf("journal: truncating: %w", err)
	}
	_, err := j.f.Seek(0, 0)
	return err
}

// Close closes the underlying file without truncating it, leaving any
// recorded renames in place for the next run to inspect.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.f.Close()
}

// PendingEntries reports the renames recorded in stateDir's journal, if
// any. An empty result means no partial install is outstanding.
func PendingEntries(stateDir string) ([]string, error) {
	path := filepath.Join(stateDir, fileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
