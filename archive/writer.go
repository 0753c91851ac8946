package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Writer appends entries to an underlying stream.
// Entries may be added in any order; names must be unique.
type Writer struct {
	w      io.Writer
	names  map[string]struct{}
	closed bool
	header [2 + MaxNameLen + 8]byte
}

// NewWriter creates a Writer that writes entries to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		names: make(map[string]struct{}),
	}
}

// Add writes an entry with the given name and payload.
func (w *Writer) Add(name string, payload []byte) error {
	if w.closed {
		return ErrClosed
	}
	if err := checkName(name); err != nil {
		return err
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	n := len(name)
	binary.LittleEndian.PutUint16(w.header[:2], uint16(n)) //nolint:gosec // bounded by MaxNameLen
	copy(w.header[2:], name)
	binary.LittleEndian.PutUint64(w.header[2+n:], uint64(len(payload)))
	if _, err := w.w.Write(w.header[:2+n+8]); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("write payload %s: %w", name, err)
	}

	w.names[name] = struct{}{}
	return nil
}

// Has reports whether an entry with name was already added.
func (w *Writer) Has(name string) bool {
	_, ok := w.names[name]
	return ok
}

// Len returns the number of entries written.
func (w *Writer) Len() int {
	return len(w.names)
}

// Close finalizes the archive. It does not close the underlying writer.
func (w *Writer) Close() error {
	w.closed = true
	return nil
}

// Build encodes entries into a single archive buffer.
func Build(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, e := range entries {
		if err := w.Add(e.Name, e.Payload); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
