// Package archive implements a minimal named-blob container.
//
// An archive is a sequence of entries with no directory, no per-entry
// compression, and no checksums. Each entry is encoded as:
//
//	uint16 little-endian name length
//	name bytes
//	uint64 little-endian payload size
//	payload bytes
//
// The stream ends after the last entry. Readers locate an entry by scanning
// headers sequentially. Compression, when wanted, is applied once over the
// finished archive by the codec package.
package archive

import (
	"errors"
	"fmt"
	"strings"
)

// MaxNameLen is the maximum entry name length in bytes.
const MaxNameLen = 100

// Sentinel errors.
var (
	// ErrNotFound is returned by Find when no entry has the requested name.
	ErrNotFound = errors.New("archive: entry not found")

	// ErrTruncated is returned when an entry header or payload extends past
	// the end of the archive.
	ErrTruncated = errors.New("archive: truncated entry")

	// ErrInvalidName is returned when an entry name is empty, too long,
	// or contains path separators.
	ErrInvalidName = errors.New("archive: invalid entry name")

	// ErrDuplicateName is returned when an entry name is written twice.
	ErrDuplicateName = errors.New("archive: duplicate entry name")

	// ErrClosed is returned when writing to a finalized archive.
	ErrClosed = errors.New("archive: writer closed")
)

// Entry is a named payload stored in an archive.
type Entry struct {
	// Name addresses the entry within the archive.
	Name string

	// Size is the payload length in bytes.
	Size uint64

	// Payload holds exactly Size bytes. Payloads returned by a Reader
	// alias the archive buffer and must not be modified.
	Payload []byte
}

// ValidName reports whether name can be used as an entry name.
func ValidName(name string) bool {
	if name == "" || len(name) > MaxNameLen {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
