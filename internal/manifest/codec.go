package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
)

// wire format:
//
//	MANIFEST\t<version>
//	component:\t<bundle-name>      (optional)
//	previous:\t<version>
//	filecount:\t<count>
//	timestamp:\t<unix-seconds>
//	includes:\t<bundle-name>      (zero or more lines, one per include)
//	<blank line>
//	<flags>\t<hash>\t<version>\t<path>   (one line per file, any count)
//
// <flags> is a fixed 6-character field: [type][deleted][do-not-update]
// [config][state][boot], where type is one of F (regular), D (directory),
// L (symlink), M (manifest pointer) and each remaining position is '.' when
// unset or a mnemonic letter when set.

const headerKeyword = "MANIFEST"

// Decode parses a manifest in the wire format described above.
func Decode(r io.Reader) (*Manifest, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("manifest: empty input")
	}
	header := strings.SplitN(scanner.Text(), "\t", 2)
	if len(header) != 2 || header[0] != headerKeyword {
		return nil, fmt.Errorf("manifest: missing %s header", headerKeyword)
	}
	version, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("manifest: invalid version %q: %w", header[1], err)
	}

	m := &Manifest{Version: version}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("manifest: malformed header line %q", line)
		}
		switch fields[0] {
		case "component:":
			m.Component = fields[1]
		case "previous:", "filecount:", "timestamp:":
			// not needed by the bundle lifecycle core; accepted and discarded
		case "includes:":
			m.Includes = append(m.Includes, fields[1])
		default:
			return nil, fmt.Errorf("manifest: unknown header field %q", fields[0])
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		f, err := decodeFileLine(line)
		if err != nil {
			return nil, err
		}
		if f.Type == TypeManifestPointer {
			m.Manifests = append(m.Manifests, f)
		} else {
			m.Files = append(m.Files, f)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("manifest: scan failed: %w", err)
	}

	return m, nil
}

func decodeFileLine(line string) (*File, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return nil, fmt.Errorf("manifest: malformed file record %q", line)
	}
	if len(fields[0]) != 6 {
		return nil, fmt.Errorf("manifest: malformed flags field %q", fields[0])
	}

	f := &File{}
	switch fields[0][0] {
	case 'F':
		f.Type = TypeRegular
	case 'D':
		f.Type = TypeDirectory
	case 'L':
		f.Type = TypeSymlink
	case 'M':
		f.Type = TypeManifestPointer
	default:
		return nil, fmt.Errorf("manifest: unknown file type %q", string(fields[0][0]))
	}
	f.Flags = Flags{
		Deleted:     fields[0][1] != '.',
		DoNotUpdate: fields[0][2] != '.',
		Config:      fields[0][3] != '.',
		State:       fields[0][4] != '.',
		Boot:        fields[0][5] != '.',
	}

	f.Hash = digest.Digest(fields[1])
	if f.Hash != ZeroHash {
		if err := f.Hash.Validate(); err != nil {
			return nil, fmt.Errorf("manifest: invalid hash %q: %w", fields[1], err)
		}
	}

	lastChange, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("manifest: invalid version %q: %w", fields[2], err)
	}
	f.LastChange = lastChange
	f.Path = fields[3]

	return f, nil
}

// Encode writes m in the wire format Decode understands. Only the version,
// component and includes header lines are written. Tests use it to build
// manifests for the fetcher fake.
func Encode(w io.Writer, m *Manifest) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%s\t%d\n", headerKeyword, m.Version); err != nil {
		return err
	}
	if m.Component != "" {
		if _, err := fmt.Fprintf(bw, "component:\t%s\n", m.Component); err != nil {
			return err
		}
	}
	for _, inc := range m.Includes {
		if _, err := fmt.Fprintf(bw, "includes:\t%s\n", inc); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(bw, "\n"); err != nil {
		return err
	}

	all := make([]*File, 0, len(m.Files)+len(m.Manifests))
	all = append(all, m.Files...)
	all = append(all, m.Manifests...)
	for _, f := range all {
		if err := encodeFileLine(bw, f); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func encodeFileLine(w io.Writer, f *File) error {
	var typeChar byte
	switch f.Type {
	case TypeDirectory:
		typeChar = 'D'
	case TypeSymlink:
		typeChar = 'L'
	case TypeManifestPointer:
		typeChar = 'M'
	default:
		typeChar = 'F'
	}
	flags := [6]byte{typeChar, '.', '.', '.', '.', '.'}
	if f.Flags.Deleted {
		flags[1] = 'd'
	}
	if f.Flags.DoNotUpdate {
		flags[2] = 'n'
	}
	if f.Flags.Config {
		flags[3] = 'c'
	}
	if f.Flags.State {
		flags[4] = 's'
	}
	if f.Flags.Boot {
		flags[5] = 'b'
	}

	_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", string(flags[:]), f.Hash, f.LastChange, f.Path)
	return err
}
