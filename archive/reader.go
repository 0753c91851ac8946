package archive

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// Reader reads entries from an in-memory archive.
type Reader struct {
	data []byte
}

// NewReader creates a Reader over data. The Reader does not copy data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Find scans entry headers in order and returns the first entry named name.
// Returns ErrNotFound when the end of the archive is reached without a match.
func (r *Reader) Find(name string) (Entry, error) {
	for e, err := range r.All() {
		if err != nil {
			return Entry{}, err
		}
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// All iterates entries in archive order. Iteration stops after the first
// error, which is yielded with a zero Entry.
func (r *Reader) All() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		off := 0
		for off < len(r.data) {
			e, next, err := r.entryAt(off)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
			off = next
		}
	}
}

// Names returns every entry name in archive order.
func (r *Reader) Names() ([]string, error) {
	var names []string
	for e, err := range r.All() {
		if err != nil {
			return names, err
		}
		names = append(names, e.Name)
	}
	return names, nil
}

// entryAt decodes the entry starting at off and returns the offset of the
// following entry.
func (r *Reader) entryAt(off int) (Entry, int, error) {
	rest := r.data[off:]
	if len(rest) < 2 {
		return Entry{}, 0, fmt.Errorf("%w: name length at offset %d", ErrTruncated, off)
	}
	nameLen := int(binary.LittleEndian.Uint16(rest))
	if nameLen == 0 || nameLen > MaxNameLen {
		return Entry{}, 0, fmt.Errorf("%w: name length %d at offset %d", ErrInvalidName, nameLen, off)
	}
	rest = rest[2:]
	if len(rest) < nameLen+8 {
		return Entry{}, 0, fmt.Errorf("%w: header at offset %d", ErrTruncated, off)
	}
	name := string(rest[:nameLen])
	size := binary.LittleEndian.Uint64(rest[nameLen:])
	rest = rest[nameLen+8:]
	if size > uint64(len(rest)) {
		return Entry{}, 0, fmt.Errorf("%w: %q declares %d bytes, %d remain", ErrTruncated, name, size, len(rest))
	}

	payload := rest[:size:size]
	next := off + 2 + nameLen + 8 + int(size) //nolint:gosec // size <= len(rest)
	return Entry{Name: name, Size: size, Payload: payload}, next, nil
}
