// Package library manages a project's Library directory: a flat, derived
// cache holding one canonical copy of every tracked asset plus any
// resources extracted from scene archives.
//
// The directory is created lazily on the first write. Every write goes to
// a temp file in the Library and is renamed into place, so a reader never
// sees a partially copied asset.
package library

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meigma/ultra/internal/atomicfile"
)

// DirName is the name of the Library directory under a project root.
const DirName = "Library"

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// ErrInvalidName is returned for names that are not plain file names.
var ErrInvalidName = errors.New("library: invalid file name")

// Library is a directory of cached files addressed by file name.
type Library struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
	logger   *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithDirPerm sets the permissions used when creating the Library directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(l *Library) {
		l.dirPerm = mode
	}
}

// WithFilePerm sets the permissions of files written into the Library.
func WithFilePerm(mode os.FileMode) Option {
	return func(l *Library) {
		l.filePerm = mode
	}
}

// WithLogger sets the logger for Library operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// New returns a Library rooted at dir. The directory is not created until
// the first write.
func New(dir string, opts ...Option) (*Library, error) {
	if dir == "" {
		return nil, errors.New("library dir is empty")
	}
	l := &Library{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// ForProject returns the Library of the project rooted at root.
func ForProject(root string, opts ...Option) (*Library, error) {
	return New(filepath.Join(root, DirName), opts...)
}

// AssetName returns the Library file name for an asset: its id followed by
// the extension of its source path.
func AssetName(id uuid.UUID, sourcePath string) string {
	return id.String() + filepath.Ext(sourcePath)
}

// Dir returns the Library directory.
func (l *Library) Dir() string {
	return l.dir
}

// Path returns the absolute location of name inside the Library.
// It does not check that name is valid.
func (l *Library) Path(name string) string {
	return filepath.Join(l.dir, name)
}

// Exists reports whether a regular file called name is present.
func (l *Library) Exists(name string) bool {
	if checkName(name) != nil {
		return false
	}
	info, err := os.Stat(l.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Put stores the content read from r under name, replacing any existing
// file. Returns the number of bytes written.
func (l *Library) Put(name string, r io.Reader) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	if err := l.ensure(); err != nil {
		return 0, err
	}
	n, err := atomicfile.Copy(l.Path(name), r, l.filePerm)
	if err != nil {
		return 0, fmt.Errorf("library: put %s: %w", name, err)
	}
	l.log().Debug("library file written", "entry", name, "bytes", n)
	return n, nil
}

// WriteFile stores data under name, replacing any existing file.
func (l *Library) WriteFile(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := l.ensure(); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(l.Path(name), data, l.filePerm); err != nil {
		return fmt.Errorf("library: write %s: %w", name, err)
	}
	l.log().Debug("library file written", "entry", name, "bytes", len(data))
	return nil
}

// Import copies the file at src into the Library under name.
func (l *Library) Import(name, src string) (int64, error) {
	f, err := os.Open(src) //nolint:gosec // caller-provided source path
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return l.Put(name, f)
}

// Remove deletes name from the Library. Missing files are a no-op.
func (l *Library) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(l.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SizeBytes returns the total size of the regular files in the Library.
// A missing directory has size zero.
func (l *Library) SizeBytes() (int64, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var total int64
	for _, d := range entries {
		if !d.Type().IsRegular() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// ensure creates the Library directory if it does not exist.
func (l *Library) ensure() error {
	if err := os.MkdirAll(l.dir, l.dirPerm); err != nil {
		return fmt.Errorf("library: create directory: %w", err)
	}
	return nil
}

// log returns the logger, falling back to a discard logger if nil.
func (l *Library) log() *slog.Logger {
	if l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
