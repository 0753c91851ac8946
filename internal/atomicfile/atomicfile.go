// Package atomicfile replaces files by writing a sibling temp file and
// renaming it over the target.
package atomicfile

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes data to a temp file then renames it to target,
// ensuring a reader never observes a partially written target.
func WriteFile(target string, data []byte, perm os.FileMode) error {
	return write(target, perm, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
}

// Copy streams r into a temp file then renames it to target.
// Returns the number of bytes written.
func Copy(target string, r io.Reader, perm os.FileMode) (int64, error) {
	var written int64
	err := write(target, perm, func(w io.Writer) (int64, error) {
		n, err := io.Copy(w, r)
		written = n
		return n, err
	})
	return written, err
}

func write(target string, perm os.FileMode, fill func(io.Writer) (int64, error)) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".ultra-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
